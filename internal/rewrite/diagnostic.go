package rewrite

import "fmt"

// DiagnosticKind classifies why a value was left unchanged.
type DiagnosticKind string

const (
	KindStaticBetweenPartitions DiagnosticKind = "static_between_partitions"
	KindTrailingSegments        DiagnosticKind = "too_many_trailing_segments"
	KindPartitionPosition       DiagnosticKind = "unsupported_partition_position"
	KindAmbiguousPartition      DiagnosticKind = "ambiguous_partition"
	KindTooComplex              DiagnosticKind = "too_complex"
	KindNonSelectCommand        DiagnosticKind = "non_select_command"
	KindCredentialCodec         DiagnosticKind = "credential_codec_fallback"
)

// Diagnostic reports a row-level anomaly. The affected row still syncs with the
// original value kept.
type Diagnostic struct {
	ContextID int64
	Kind      DiagnosticKind
	Value     string
	Message   string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] id=%d %s: %s", d.Kind, d.ContextID, d.Message, d.Value)
}

func NewDiagnostic(contextID int64, kind DiagnosticKind, value, format string, args ...any) Diagnostic {
	return Diagnostic{
		ContextID: contextID,
		Kind:      kind,
		Value:     value,
		Message:   fmt.Sprintf(format, args...),
	}
}
