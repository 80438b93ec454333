package flags

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestFlagNamesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, f := range Flags {
		for _, name := range f.Names() {
			assert.False(t, seen[name], "duplicate flag %s", name)
			seen[name] = true
		}
	}
	assert.True(t, seen["ecosystem"])
	assert.True(t, seen["log.level"])
	assert.True(t, seen["metrics.enabled"])
}

func TestEnvVarsArePrefixed(t *testing.T) {
	for _, f := range Flags {
		ev, ok := f.(interface{ GetEnvVars() []string })
		if !ok {
			continue
		}
		for _, env := range ev.GetEnvVars() {
			assert.Regexp(t, "^"+EnvVarPrefix+"_", env)
		}
	}
}

func TestCheckRequired(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "missing ecosystem", args: nil, wantErr: true},
		{name: "ecosystem set", args: []string{"--ecosystem", "go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := flag.NewFlagSet("test", flag.ContinueOnError)
			set.String(Ecosystem.Name, "", "")
			require.NoError(t, set.Parse(tt.args))
			ctx := cli.NewContext(cli.NewApp(), set, nil)

			err := CheckRequired(ctx)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEcosystemUsageListsEcosystems(t *testing.T) {
	for _, e := range []string{"java", "go", "javascript", "kotlin", "dotnet", "php", "ruby", "rust", "cpp"} {
		assert.Contains(t, Ecosystem.Usage, e)
	}
}
