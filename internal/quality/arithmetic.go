package quality

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/AazainKhan/luminate-ai-sub000/internal/reasoning"
)

// binaryEquation matches "a op b = c" with integer or decimal operands.
var binaryEquation = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*([+\-*×÷/])\s*(-?\d+(?:\.\d+)?)\s*=\s*(-?\d+(?:\.\d+)?)`)

// ArithmeticHeuristic recomputes the simple equations of a worked example.
// Equations it cannot isolate are skipped.
type ArithmeticHeuristic struct{}

func (h *ArithmeticHeuristic) Name() string { return "arithmetic" }

func (h *ArithmeticHeuristic) Check(in *Input) *Violation {
	if in.Intent != reasoning.IntentMath {
		return nil
	}
	wrong := CheckArithmetic(in.Text)
	if len(wrong) == 0 {
		return nil
	}
	return &Violation{
		Detail:      strings.Join(wrong, "; "),
		Penalty:     min(0.3*float64(len(wrong)), 0.6),
		Instruction: "Fix the arithmetic: " + strings.Join(wrong, "; ") + ".",
	}
}

// CheckArithmetic returns a description of every wrong equation in text.
func CheckArithmetic(text string) []string {
	var wrong []string
	for _, m := range binaryEquation.FindAllStringSubmatchIndex(text, -1) {
		// "2 + 3 * 4 = 14" would otherwise be checked as "3 * 4 = 14".
		if chained(text[:m[0]]) {
			continue
		}
		a, op, b, claimed := text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]], text[m[8]:m[9]]
		got, err := compute(a, op, b)
		if err != nil {
			continue
		}
		want, _ := strconv.ParseFloat(claimed, 64)
		if math.Abs(got-want) > tolerance(claimed) {
			wrong = append(wrong, fmt.Sprintf("%s %s %s is %s, not %s", a, op, b, formatNumber(got), claimed))
		}
	}
	return wrong
}

// chained reports whether the text before an equation ends in an operator.
func chained(before string) bool {
	before = strings.TrimRight(before, " \t")
	if before == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(before)
	return strings.ContainsRune("+-*/×÷(", last)
}

func compute(aStr, op, bStr string) (float64, error) {
	a, err := strconv.ParseFloat(aStr, 64)
	if err != nil {
		return 0, err
	}
	b, err := strconv.ParseFloat(bStr, 64)
	if err != nil {
		return 0, err
	}
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*", "×":
		return a * b, nil
	case "/", "÷":
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return a / b, nil
	}
	return 0, fmt.Errorf("unsupported operator: %s", op)
}

// tolerance accepts rounding to the precision the claimed value is
// written with.
func tolerance(claimed string) float64 {
	decimals := 0
	if i := strings.Index(claimed, "."); i >= 0 {
		decimals = len(claimed) - i - 1
	}
	return 0.5*math.Pow(10, -float64(decimals)) + 1e-9
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
