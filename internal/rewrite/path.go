package rewrite

import (
	"regexp"
	"strings"
)

var (
	// networkPrefix matches a leading "scheme://authority" such as hdfs://nameservice1.
	networkPrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://[^/]*`)
	hdfsPrefix    = regexp.MustCompile(`^hdfs://[^/]+`)

	// keyValueSegment matches partition folders of the form key=...${...}...
	keyValueSegment = regexp.MustCompile(`=.*\$\{.*\}`)
)

// ResolvePath maps a source storage location onto targetBase while keeping its
// partition suffix. Paths whose partition layout cannot be mapped are returned unchanged
// together with a diagnostic; ResolvePath never fails.
func ResolvePath(sourcePath, targetBase string, contextID int64) (string, []Diagnostic) {
	if strings.TrimSpace(sourcePath) == "" {
		return targetBase, nil
	}

	raw := networkPrefix.ReplaceAllString(strings.TrimSpace(sourcePath), "")
	raw = strings.Trim(raw, "/")

	dollars := strings.Count(raw, "$")
	if dollars == 0 {
		return targetBase, nil
	}

	segments := strings.Split(raw, "/")
	first := -1
	allKeyValue := true
	for i, seg := range segments {
		if !strings.Contains(seg, "$") {
			continue
		}
		if first < 0 {
			first = i
		}
		if !keyValueSegment.MatchString(seg) {
			allKeyValue = false
		}
	}

	if allKeyValue {
		return resolveKeyValue(sourcePath, targetBase, segments, first, contextID)
	}
	if dollars == 1 {
		return resolveImplicit(sourcePath, targetBase, segments, first, contextID)
	}

	return sourcePath, []Diagnostic{NewDiagnostic(contextID, KindTooComplex, sourcePath,
		"partition layout has %d variables and cannot be mapped", dollars)}
}

// resolveKeyValue handles layouts like year=${Y}/month=${M}[/leaf].
func resolveKeyValue(sourcePath, targetBase string, segments []string, first int, contextID int64) (string, []Diagnostic) {
	var suffix strings.Builder
	foundDynamic := false

	for i := first; i < len(segments); i++ {
		seg := segments[i]
		if strings.Contains(seg, "$") {
			foundDynamic = true
		} else if foundDynamic && i < len(segments)-1 {
			if hasVariable(segments[i+1:]) {
				return sourcePath, []Diagnostic{NewDiagnostic(contextID, KindStaticBetweenPartitions, sourcePath,
					"static folder %q sits between partition folders", seg)}
			}
			return sourcePath, []Diagnostic{NewDiagnostic(contextID, KindTrailingSegments, sourcePath,
				"only one static folder may follow the partition folders")}
		}
		suffix.WriteString("/")
		suffix.WriteString(seg)
	}

	return targetBase + suffix.String(), nil
}

func hasVariable(segments []string) bool {
	for _, seg := range segments {
		if strings.Contains(seg, "$") {
			return true
		}
	}
	return false
}

// resolveImplicit handles a single bare variable folder like /${YYYYMMDD}[/leaf].
func resolveImplicit(sourcePath, targetBase string, segments []string, idx int, contextID int64) (string, []Diagnostic) {
	seg := segments[idx]
	if strings.Contains(seg, "=") {
		return sourcePath, []Diagnostic{NewDiagnostic(contextID, KindAmbiguousPartition, sourcePath,
			"variable folder %q has '=' but is not a key=${...} partition", seg)}
	}

	switch idx {
	case len(segments) - 1:
		return targetBase + "/partition=" + seg, nil
	case len(segments) - 2:
		return targetBase + "/partition=" + seg + "/" + segments[idx+1], nil
	default:
		return sourcePath, []Diagnostic{NewDiagnostic(contextID, KindPartitionPosition, sourcePath,
			"variable folder %q is followed by more than one folder", seg)}
	}
}

// NormalizeForMap reduces a location to the base directory that precedes its partition
// folders, so that DDL statements pointing under the same base can be matched.
func NormalizeForMap(rawPath string) string {
	clean := hdfsPrefix.ReplaceAllString(rawPath, "")

	cut := strings.Index(clean, "$")
	if cut < 0 {
		cut = strings.Index(clean, "partition=")
	}
	if cut >= 0 {
		if slash := strings.LastIndex(clean[:cut], "/"); slash > 0 {
			clean = clean[:slash]
		}
	}

	return strings.TrimSuffix(clean, "/")
}

// CountVariables returns the number of '$' characters in a path.
func CountVariables(path string) int {
	return strings.Count(path, "$")
}
