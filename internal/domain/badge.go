package domain

// Field defaults used when a badge page lacks the corresponding element.
const (
	NotAvailable  = "N/A"
	UnknownIssuer = "Unknown"
)

// BadgeSnapshot is the set of fields read from one badge page at one point in time.
type BadgeSnapshot struct {
	BadgeName         string `json:"badge_name"`
	IssuedBy          string `json:"issued_by"`
	CertificateHolder string `json:"certificate_holder"`
	Dates             string `json:"dates"`
	IsExpired         bool   `json:"is_expired"`
}

// NewBadgeSnapshot returns a snapshot with every text field at its default.
func NewBadgeSnapshot() BadgeSnapshot {
	return BadgeSnapshot{
		BadgeName:         NotAvailable,
		IssuedBy:          UnknownIssuer,
		CertificateHolder: NotAvailable,
		Dates:             NotAvailable,
	}
}
