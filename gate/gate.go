package gate

import (
	"os"

	"github.com/kbukum/convoy/errors"
	"github.com/kbukum/convoy/logger"
)

// Verdict is the gate's decision over one tree.
type Verdict struct {
	Accepted bool
	// Reasons lists every rule that failed; empty on accept.
	Reasons []string
}

// Rule checks one acceptance condition against the tree root. A failing
// rule returns ok=false with a human-readable reason. Rules must not write
// to the tree.
type Rule func(treeRoot string) (reason string, ok bool)

// Gate evaluates a fixed rule set against a canonical tree.
type Gate struct {
	rules []Rule
	log   *logger.Logger
}

// New creates a gate from its rule set. A gate with no rules accepts
// everything.
func New(log *logger.Logger, rules ...Rule) *Gate {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Gate{rules: rules, log: log.WithComponent("gate")}
}

// Evaluate runs every rule and collects all failures, so a rejected bundle
// carries the complete reason list rather than the first hit.
func (g *Gate) Evaluate(treeRoot string) (Verdict, error) {
	if _, err := os.Stat(treeRoot); err != nil {
		return Verdict{}, errors.Internal(err)
	}

	verdict := Verdict{Accepted: true}
	for _, rule := range g.rules {
		if reason, ok := rule(treeRoot); !ok {
			verdict.Accepted = false
			verdict.Reasons = append(verdict.Reasons, reason)
		}
	}

	if verdict.Accepted {
		g.log.Info("gate accepted", logger.Fields(logger.FieldVerdict, "accept", "rules", len(g.rules)))
	} else {
		g.log.Warn("gate rejected", logger.Fields(logger.FieldVerdict, "reject", "reasons", verdict.Reasons))
	}
	return verdict, nil
}
