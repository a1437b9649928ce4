package gitcli

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/joshproj/josh/internal/errs"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
)

// decodeCommit parses the output of `git cat-file commit <oid>`: git's
// canonical commit encoding, header lines followed by a blank line and the
// message. The header-continuation handling (a leading space on extra
// header lines belongs to the previous header, per §4.4 3g) mirrors the
// teacher's object.Commit.Decode.
func decodeCommit(raw []byte) (*store.Commit, error) {
	c := &store.Commit{}
	r := bufio.NewReader(bytes.NewReader(raw))

	var message strings.Builder
	finishedHeaders := false
	for {
		line, readErr := r.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, errs.Encoding("reading commit: %v", readErr)
		}
		text := strings.TrimSuffix(line, "\n")
		if !finishedHeaders {
			if text == "" {
				finishedHeaders = true
				if readErr == nil {
					continue
				}
			} else if strings.HasPrefix(text, " ") && len(c.ExtraHeaders) != 0 {
				last := &c.ExtraHeaders[len(c.ExtraHeaders)-1]
				last.V += "\n" + text[1:]
			} else {
				sp := strings.IndexByte(text, ' ')
				if sp < 0 {
					continue
				}
				key, val := text[:sp], text[sp+1:]
				switch key {
				case "tree":
					oid, ok := plumbing.ParseOid(val)
					if !ok {
						return nil, errs.Encoding("malformed tree header %q", val)
					}
					c.Tree = oid
				case "parent":
					oid, ok := plumbing.ParseOid(val)
					if !ok {
						return nil, errs.Encoding("malformed parent header %q", val)
					}
					c.Parents = append(c.Parents, oid)
				case "author":
					c.Author = decodeSignature(val)
				case "committer":
					c.Committer = decodeSignature(val)
				default:
					c.ExtraHeaders = append(c.ExtraHeaders, store.ExtraHeader{K: key, V: val})
				}
			}
		} else {
			message.WriteString(line)
		}
		if readErr != nil {
			break
		}
	}
	c.Message = message.String()
	return c, nil
}

// decodeSignature parses "<name> <email> <epoch> <tz>", mirroring
// object.Signature.Decode.
func decodeSignature(s string) store.Signature {
	var sig store.Signature
	open := strings.LastIndexByte(s, '<')
	closeIdx := strings.LastIndexByte(s, '>')
	if open == -1 || closeIdx == -1 || closeIdx < open {
		return sig
	}
	sig.Name = strings.TrimSpace(s[:open])
	sig.Email = s[open+1 : closeIdx]
	if closeIdx+2 >= len(s) {
		return sig
	}
	rest := strings.Fields(s[closeIdx+2:])
	if len(rest) != 2 {
		return sig
	}
	epoch, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return sig
	}
	sig.When = time.Unix(epoch, 0).UTC()
	if loc, err := parseGitTZ(rest[1]); err == nil {
		sig.When = sig.When.In(loc)
	}
	return sig
}

func parseGitTZ(tz string) (*time.Location, error) {
	if len(tz) != 5 {
		return time.UTC, errs.Encoding("malformed timezone %q", tz)
	}
	hours, err1 := strconv.Atoi(tz[0:3])
	mins, err2 := strconv.Atoi(tz[3:])
	if err1 != nil || err2 != nil {
		return time.UTC, errs.Encoding("malformed timezone %q", tz)
	}
	sign := 1
	if hours < 0 {
		sign = -1
		hours = -hours
	}
	offset := sign * (hours*3600 + mins*60)
	return time.FixedZone("", offset), nil
}
