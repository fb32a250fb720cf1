package sat

import "github.com/benbjohnson/seqre"

// interval is an inclusive range of characters.
type interval struct{ lo, hi rune }

// domain is a sorted list of disjoint intervals.
type domain []interval

func fullDomain() domain {
	return domain{{0, seqre.MaxChar}}
}

func (d domain) isEmpty() bool { return len(d) == 0 }

// intersect returns the characters of d between lo and hi.
func (d domain) intersect(lo, hi rune) domain {
	var other domain
	for _, iv := range d {
		if hi < iv.lo {
			break
		} else if iv.hi >= lo {
			other = append(other, interval{max(iv.lo, lo), min(iv.hi, hi)})
		}
	}
	return other
}

// exclude returns the characters of d other than c.
func (d domain) exclude(c rune) domain {
	return append(d.intersect(0, c-1), d.intersect(c+1, seqre.MaxChar)...)
}
