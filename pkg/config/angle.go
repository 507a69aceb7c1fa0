package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Angle is an angle in radians. YAML accepts either a plain number or a
// restricted expression over numbers and pi joined by * and /, e.g.
// "pi/6" or "3*math.pi/6", matching the expressions the batch scripts have
// historically used.
type Angle float64

// UnmarshalYAML decodes numbers directly and evaluates string expressions.
func (a *Angle) UnmarshalYAML(value *yaml.Node) error {
	var f float64
	if err := value.Decode(&f); err == nil {
		*a = Angle(f)
		return nil
	}

	var expr string
	if err := value.Decode(&expr); err != nil {
		return fmt.Errorf("config: angle must be a number or expression: %w", err)
	}
	f, err := EvalAngle(expr)
	if err != nil {
		return err
	}
	*a = Angle(f)
	return nil
}

// EvalAngle evaluates a restricted angle expression to radians. The grammar
// is factor {("*"|"/") factor} with factors being numeric literals or pi;
// an optional leading minus negates the result.
func EvalAngle(expr string) (float64, error) {
	s := strings.ReplaceAll(expr, " ", "")
	s = strings.ReplaceAll(s, "math.pi", "pi")
	if s == "" {
		return 0, fmt.Errorf("config: empty angle expression")
	}

	negate := false
	if strings.HasPrefix(s, "-") {
		negate = true
		s = s[1:]
	}

	result := 1.0
	op := byte('*')
	for s != "" {
		var token string
		if i := strings.IndexAny(s, "*/"); i >= 0 {
			token, s = s[:i], s[i:]
		} else {
			token, s = s, ""
		}

		v, err := angleFactor(token, expr)
		if err != nil {
			return 0, err
		}
		switch op {
		case '*':
			result *= v
		case '/':
			if v == 0 {
				return 0, fmt.Errorf("config: division by zero in angle expression %q", expr)
			}
			result /= v
		}

		if s != "" {
			op = s[0]
			s = s[1:]
			if s == "" {
				return 0, fmt.Errorf("config: trailing operator in angle expression %q", expr)
			}
		}
	}

	if negate {
		result = -result
	}
	return result, nil
}

func angleFactor(token, expr string) (float64, error) {
	if token == "" {
		return 0, fmt.Errorf("config: malformed angle expression %q", expr)
	}
	if strings.EqualFold(token, "pi") {
		return math.Pi, nil
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("config: bad term %q in angle expression %q", token, expr)
	}
	return v, nil
}
