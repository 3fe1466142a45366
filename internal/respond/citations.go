package respond

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/user/bedrockchat/pkg/agent"
)

// citationMarker matches the inline placeholders the agent embeds in
// generated text, e.g. "%[2]%".
var citationMarker = regexp.MustCompile(`%\[(\d+)\]%`)

// InjectCitations rewrites inline citation placeholders into superscript
// markers and, when citations are present, appends one location line per
// retrieved reference.
//
// The inline marker keeps the digit the agent chose; the location list
// numbers the flattened references sequentially from 1. The two counters
// can disagree when a citation carries multiple references. That
// mismatch is inherited from the upstream agent console behavior and is
// deliberately not reconciled here.
func InjectCitations(text string, citations []agent.Citation) string {
	out := citationMarker.ReplaceAllString(text, "<sup>[$1]</sup>")

	if len(citations) == 0 {
		return out
	}

	var locs strings.Builder
	num := 1
	for _, citation := range citations {
		for _, ref := range citation.RetrievedReferences {
			fmt.Fprintf(&locs, "\n<br>[%d] %s", num, ref.Location.S3Location.URI)
			num++
		}
	}
	return out + "\n" + locs.String()
}
