package probe

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// cap on the response echoed back in a PatternError
	maxBuffered = 64 << 10
	// cap on the text of a drained line kept for the debug log
	maxLogged = 4 << 10
)

// BodyPolicy decides whether and how a response body is consumed.
type BodyPolicy struct {
	Pattern *regexp.Regexp
	Read    bool
}

// Enabled reports whether the body must be read at all.
func (b BodyPolicy) Enabled() bool { return b.Pattern != nil || b.Read }

// Consume reads r line by line and returns how many lines it read. Lines may
// be of any length.
//
// With a pattern it stops at the first matching line without waiting for
// EOF; reaching EOF without a match yields a *PatternError carrying what was
// read. Without a pattern it drains r.
func (b BodyPolicy) Consume(r io.Reader, log *zap.Logger) (int, error) {
	br := bufio.NewReader(r)
	keep := -1
	if b.Pattern == nil {
		keep = maxLogged
	}

	var (
		lines     int
		response  strings.Builder
		truncated bool
	)
	for {
		line, size, err := nextLine(br, keep)
		if err != nil {
			return lines, fmt.Errorf("read response: %w", err)
		}
		if size < 0 {
			break
		}
		lines++
		log.Debug("response_line", zap.Int("line", lines), zap.Int("bytes", size), zap.String("text", line))

		if b.Pattern == nil {
			continue
		}
		if !truncated {
			chunk := line
			if lines > 1 {
				chunk = "\n" + line
			}
			room := maxBuffered - response.Len()
			if len(chunk) > room {
				truncated = true
			}
			response.WriteString(clip(chunk, room))
		}
		if b.Pattern.MatchString(line) {
			log.Info("response_matched", zap.String("regex", b.Pattern.String()), zap.Int("line", lines))
			return lines, nil
		}
	}

	if b.Pattern != nil {
		text := response.String()
		if truncated {
			text += "...(truncated)"
		}
		return lines, &PatternError{Pattern: b.Pattern.String(), Response: text}
	}
	return lines, nil
}

// nextLine returns the next line without its line ending and the line's full
// size in bytes, or size -1 at the end of the stream. At most keep bytes of
// the line are returned (all of it when keep < 0); the rest is skipped
// without being held in memory.
func nextLine(br *bufio.Reader, keep int) (string, int, error) {
	var (
		sb   strings.Builder
		size int
		tail [2]byte
	)
	for {
		frag, err := br.ReadSlice('\n')
		size += len(frag)
		switch n := len(frag); {
		case n >= 2:
			tail = [2]byte{frag[n-2], frag[n-1]}
		case n == 1:
			tail = [2]byte{tail[1], frag[0]}
		}
		switch {
		case keep < 0:
			sb.Write(frag)
		case sb.Len() < keep:
			sb.Write(frag[:min(len(frag), keep-sb.Len())])
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if size == 0 {
				return "", -1, nil
			}
		case err != nil:
			return "", size, err
		}
		break
	}

	line := sb.String()
	if tail[1] == '\n' {
		size--
		line = strings.TrimSuffix(line, "\n")
		if size > 0 && tail[0] == '\r' {
			size--
			line = strings.TrimSuffix(line, "\r")
		}
	}
	return line, size, nil
}

// clip cuts s to at most n bytes without splitting a UTF-8 sequence.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
