package gate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/convoy/run"
)

// ExitStatusZero accepts when the slot's metadata file reports exit_status 0.
// A missing or unreadable metadata file fails the rule rather than erroring,
// so evaluation stays total over any tree shape.
func ExitStatusZero(slot string) Rule {
	return func(treeRoot string) (string, bool) {
		meta, err := readYAML(filepath.Join(treeRoot, slot, run.MetaFileName))
		if err != nil {
			return fmt.Sprintf("%s/%s: %v", slot, run.MetaFileName, err), false
		}
		status, ok := asInt(meta["exit_status"])
		if !ok {
			return fmt.Sprintf("%s/%s: exit_status missing or non-numeric", slot, run.MetaFileName), false
		}
		if status != 0 {
			return fmt.Sprintf("%s: exit_status %d", slot, status), false
		}
		return "", true
	}
}

// OutputContains accepts when the named file under the slot contains token.
func OutputContains(slot, file, token string) Rule {
	return func(treeRoot string) (string, bool) {
		data, err := os.ReadFile(filepath.Join(treeRoot, slot, file))
		if err != nil {
			return fmt.Sprintf("%s/%s: %v", slot, file, err), false
		}
		if !bytes.Contains(data, []byte(token)) {
			return fmt.Sprintf("%s/%s: does not contain %q", slot, file, token), false
		}
		return "", true
	}
}

// MetricAtLeast accepts when the YAML file under the slot has a numeric key
// greater than or equal to threshold.
func MetricAtLeast(slot, file, key string, threshold float64) Rule {
	return func(treeRoot string) (string, bool) {
		doc, err := readYAML(filepath.Join(treeRoot, slot, file))
		if err != nil {
			return fmt.Sprintf("%s/%s: %v", slot, file, err), false
		}
		value, ok := asFloat(doc[key])
		if !ok {
			return fmt.Sprintf("%s/%s: %s missing or non-numeric", slot, file, key), false
		}
		if value < threshold {
			return fmt.Sprintf("%s/%s: %s %g below %g", slot, file, key, value, threshold), false
		}
		return "", true
	}
}

// All combines rules into one that fails on the first failing member.
func All(rules ...Rule) Rule {
	return func(treeRoot string) (string, bool) {
		for _, rule := range rules {
			if reason, ok := rule(treeRoot); !ok {
				return reason, false
			}
		}
		return "", true
	}
}

func readYAML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
