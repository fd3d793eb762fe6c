package sv

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/agentoven/llmguardian/pkg/models"
)

// TokenMode selects how the restorer's opaque IDs are generated.
type TokenMode string

const (
	// TokenModeRandom generates the first L hex chars of a random
	// 128-bit value per substitution (default L=6).
	TokenModeRandom TokenMode = "random"
	// TokenModeSequential generates decimal IDs from a monotonic counter
	// held by the Redactor; the counter is shared by every Context the
	// Redactor serves and is not reset per request.
	TokenModeSequential TokenMode = "sequential"
)

const defaultHexLength = 6

// tokenPattern accepts both the hex-mode and sequential-mode token
// shapes in one compiled regex, resolving Design Note (c): the
// restorer must not assume the generator's mode.
var tokenPattern = regexp.MustCompile(`\[[A-Z_]+_TOKEN_[A-Za-z0-9]+\]`)

// Redactor replaces sensitive-value matches with opaque tokens and
// restores them later from the issuing request's Context.
type Redactor struct {
	mode      TokenMode
	hexLength int
	seq       uint64
}

// NewRedactor builds a Redactor. hexLength <= 0 uses the default (6).
func NewRedactor(mode TokenMode, hexLength int) *Redactor {
	if hexLength <= 0 {
		hexLength = defaultHexLength
	}
	return &Redactor{mode: mode, hexLength: hexLength}
}

// Redact substitutes every match with a freshly generated token,
// recording the reverse mapping into ctx. Matches are processed in
// descending start order so earlier indices remain valid as later
// (higher-index) substitutions are applied first.
func (r *Redactor) Redact(text string, matches []models.SVMatch, ctx *Context) string {
	if len(matches) == 0 {
		return text
	}

	ordered := make([]models.SVMatch, len(matches))
	copy(ordered, matches)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	out := text
	for _, m := range ordered {
		token := r.nextToken(m.Kind)
		out = out[:m.Start] + token + out[m.End:]
		ctx.put(token, m.Value, m.Kind, m.Start, m.End, true)
	}
	return out
}

// nextToken builds `[KIND_TOKEN_<id>]` with id shaped by the
// configured token-generation mode.
func (r *Redactor) nextToken(kind string) string {
	upper := strings.ToUpper(strings.ReplaceAll(kind, "-", "_"))
	var id string
	switch r.mode {
	case TokenModeSequential:
		n := atomic.AddUint64(&r.seq, 1)
		id = fmt.Sprintf("%d", n)
	default:
		id = randomHex(r.hexLength)
	}
	return fmt.Sprintf("[%s_TOKEN_%s]", upper, id)
}

func randomHex(length int) string {
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failures are effectively unrecoverable in
		// practice; fall back to a fixed sentinel rather than panic,
		// since a missing token is still reversible (it just won't
		// restore to anything, and restoration tolerates that).
		return strings.Repeat("0", length)
	}
	return hex.EncodeToString(buf)[:length]
}

// Restore finds all tokens in text in descending position order and
// substitutes each with its original value from ctx; unknown tokens
// (e.g. fabricated by the model) are left verbatim. Restoration is
// idempotent: re-running on already-restored text is a no-op for the
// tokens that are no longer present.
func (r *Redactor) Restore(text string, ctx *Context) string {
	locs := tokenPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}

	out := text
	for i := len(locs) - 1; i >= 0; i-- {
		start, end := locs[i][0], locs[i][1]
		token := out[start:end]
		if original, ok := ctx.Lookup(token); ok {
			out = out[:start] + original + out[end:]
		}
	}
	return out
}
