package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

type fakeS3 struct {
	err    error
	bucket string
	key    string
	body   []byte
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = *params.Bucket
	f.key = *params.Key
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func discard() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

func sampleReport() *types.RunReport {
	return &types.RunReport{
		SchemaVersion: types.SchemaVersion,
		RunID:         "run-1",
		Results: types.Results{
			Tool:    "maven",
			Summary: types.Summary{Services: 1, Tests: 2, Passed: 1, Failed: 1, PassRate: 0.5},
			Tests: []types.TestOutcome{
				{Service: "sqs", TestName: "SqsTest.send", Status: types.TestStatusFailed, Message: "boom", OrderTested: 1},
			},
			NoTests: []string{"s3"},
		},
	}
}

func fixedSink(fs afero.Fs) *JSONSink {
	s := NewJSONSink(discard(), fs, "/out", "java")
	s.now = func() time.Time {
		return time.Date(2024, 3, 9, 17, 5, 59, 0, time.FixedZone("PST", -8*3600))
	}
	return s
}

func TestReportFilename(t *testing.T) {
	ts := time.Date(2024, 3, 10, 1, 5, 0, 0, time.UTC)
	assert.Equal(t, "rustv1-2024-03-10T01-05.json", ReportFilename("rustv1", ts))
}

func TestJSONSinkWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	path, err := fixedSink(fs).Write(sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "/out/java-2024-03-10T01-05.json", path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "0.0.1", decoded["schema-version"])
	results := decoded["results"].(map[string]any)
	assert.Equal(t, "maven", results["tool"])
	assert.Equal(t, []any{"s3"}, results["no_tests"])

	leftovers, err := afero.Glob(fs, "/out/*.tmp")
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestJSONSinkWriteFailure(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	_, err := fixedSink(fs).Write(sampleReport())
	require.Error(t, err)
	assert.True(t, types.IsSinkError(err))
	assert.False(t, types.IsUploadError(err))

	_, err = fixedSink(afero.NewMemMapFs()).Write(nil)
	assert.True(t, types.IsSinkError(err))
}

func TestS3Upload(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/report.json", []byte(`{"a":1}`), 0o644))
	client := &fakeS3{}

	u := NewS3UploaderWithClient(discard(), fs, client, "")
	require.NoError(t, u.Upload(context.Background(), "/out/report.json", "reports/report.json"))
	assert.Equal(t, DefaultBucket, client.bucket)
	assert.Equal(t, "reports/report.json", client.key)
	assert.Equal(t, `{"a":1}`, string(client.body))
}

func TestS3UploadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/report.json", []byte(`{}`), 0o644))

	apiErr := &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
	u := NewS3UploaderWithClient(discard(), fs, &fakeS3{err: apiErr}, "bucket")
	err := u.Upload(context.Background(), "/out/report.json", "k")
	require.Error(t, err)
	assert.True(t, types.IsUploadError(err))
	var got smithy.APIError
	assert.ErrorAs(t, err, &got)

	err = u.Upload(context.Background(), "/out/missing.json", "k")
	assert.True(t, types.IsUploadError(err))
}

func TestPublishKeepsLocalReportWhenUploadFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	u := NewS3UploaderWithClient(discard(), fs, &fakeS3{err: errors.New("no route to host")}, "bucket")
	p := NewPublisher(discard(), fixedSink(fs), u, "java/", "java")

	path, err := p.Publish(context.Background(), sampleReport())
	require.NoError(t, err)
	ok, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPublishUploadsUnderPrefix(t *testing.T) {
	fs := afero.NewMemMapFs()
	client := &fakeS3{}
	p := NewPublisher(discard(), fixedSink(fs), NewS3UploaderWithClient(discard(), fs, client, "bucket"), "reports/", "java")

	_, err := p.Publish(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "reports/java-2024-03-10T01-05.json", client.key)
	assert.Contains(t, string(client.body), `"schema-version": "0.0.1"`)
}

func TestPublishLocalFailureIsFatal(t *testing.T) {
	client := &fakeS3{}
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	p := NewPublisher(discard(), fixedSink(fs), NewS3UploaderWithClient(discard(), fs, client, "bucket"), "", "java")

	_, err := p.Publish(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Empty(t, client.key)
}

func TestPublishWithoutUploader(t *testing.T) {
	p := NewPublisher(discard(), fixedSink(afero.NewMemMapFs()), nil, "", "java")
	_, err := p.Publish(context.Background(), sampleReport())
	assert.NoError(t, err)
}
