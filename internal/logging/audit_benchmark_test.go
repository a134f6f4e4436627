package logging

import (
	"strings"
	"testing"
)

func BenchmarkNogoodFact(b *testing.B) {
	// Long clauses over quoted modifiers escape on every literal.
	lit := `delta(s1, "addc(ex:E,ex:a)")`
	e := AuditEvent{
		Timestamp: 1700000000,
		EventType: AuditNogood,
		Action:    "dl_consistent",
		Count:     40,
		Detail:    "{" + strings.TrimSuffix(strings.Repeat(lit+", ", 40), ", ") + "}",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = generateMangleFact(e)
	}
}

func BenchmarkAtomEvalFact(b *testing.B) {
	e := AuditEvent{
		Timestamp:  1700000000,
		EventType:  AuditAtomEval,
		Target:     "dl_c_m",
		Action:     "evaluated",
		Detail:     `("zoo.json", delta, s1, "zoo:Animal")`,
		Count:      12,
		DurationMs: 3,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = generateMangleFact(e)
	}
}
