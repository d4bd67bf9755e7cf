package table

const (
	ellipsizeAbove = 41
	ellipsizeKeep  = 5
)

// MiddleEllipsize shortens strings longer than 41 characters to their first
// and last five characters.
func MiddleEllipsize(s string) string {
	r := []rune(s)
	if len(r) <= ellipsizeAbove {
		return s
	}
	return string(r[:ellipsizeKeep]) + "..." + string(r[len(r)-ellipsizeKeep:])
}
