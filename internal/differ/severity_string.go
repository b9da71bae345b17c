package differ

// SeverityString to lowercase
func SeverityString(s SeverityLevel) string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityModerate:
		return "moderate"
	case SeveritySafe:
		return "info"
	default:
		return "unknown"
	}
}

// DriftSymbol prefix used in text output
func DriftSymbol(t DriftType) string {
	switch t {
	case DriftAdded:
		return "+"
	case DriftResolved:
		return "-"
	default:
		return "~"
	}
}
