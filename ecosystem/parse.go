package ecosystem

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

type reportParser func(map[string][]byte, types.ServiceUnit) (types.ParseResult, bool, error)

type textParser func(string, types.ServiceUnit) types.ParseResult

// preferReports reads structured reports when the execution produced any,
// and falls back to the console output otherwise. A malformed report next
// to readable ones becomes a "parse" failure, as do unreadable reports whose
// console fallback yields nothing, whatever the exit code.
func preferReports(lgr log.Logger, raw *types.RawExecution, unit types.ServiceUnit, reports reportParser, text textParser) types.ParseResult {
	if raw == nil {
		return types.ParseResult{}
	}
	if len(raw.Reports) > 0 {
		res, ok, err := reports(raw.Reports, unit)
		if ok {
			if err != nil {
				lgr.Warn("Some reports could not be read", "service", unit.Name, "err", err)
				res.Add(types.SyntheticFailure(unit, types.ParseTestName, err.Error()))
			}
			return res
		}
		lgr.Warn("Reports unreadable, falling back to console output", "service", unit.Name, "reports", len(raw.Reports), "err", err)
		res = text(raw.Combined(), unit)
		if res.Empty() {
			msg := types.ParseFailureMessage
			if err != nil {
				msg += "\n" + err.Error()
			}
			return types.SyntheticFailure(unit, types.ParseTestName, msg)
		}
		return res
	}
	return text(raw.Combined(), unit)
}
