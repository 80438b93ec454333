package reporting

import (
	"context"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/weathertop/metrics"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

// Publisher writes the report locally, then uploads it. Only the local
// write can fail the publish; an upload failure is logged and counted.
type Publisher struct {
	log       log.Logger
	sink      *JSONSink
	uploader  Uploader // nil disables uploads
	keyPrefix string
	ecosystem string
}

func NewPublisher(lgr log.Logger, sink *JSONSink, uploader Uploader, keyPrefix, ecosystem string) *Publisher {
	return &Publisher{log: lgr, sink: sink, uploader: uploader, keyPrefix: keyPrefix, ecosystem: ecosystem}
}

// Publish returns the local path of the report.
func (p *Publisher) Publish(ctx context.Context, report *types.RunReport) (string, error) {
	path, err := p.sink.Write(report)
	if err != nil {
		return "", err
	}
	if p.uploader == nil {
		p.log.Info("Upload disabled, keeping local report only", "path", path)
		return path, nil
	}

	key := p.keyPrefix + filepath.Base(path)
	if err := p.uploader.Upload(ctx, path, key); err != nil {
		p.log.Error("Report upload failed; local report kept", "path", path, "key", key, "err", err)
		metrics.RecordUploadError(p.ecosystem)
		metrics.RecordErrorDetails("upload", err)
	}
	return path, nil
}
