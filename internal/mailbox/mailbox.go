// Package mailbox reads RFC 5322 messages from local .eml files. It is the
// offline stand-in for a live mail transport.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/jonathan/jobpulse/internal/logging"
	"github.com/jonathan/jobpulse/internal/scan"
	"github.com/jonathan/jobpulse/internal/types"
)

// Extension is the file extension DirSource reads.
const Extension = ".eml"

// ParseError reports a message that could not be read.
type ParseError struct {
	Path  string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse message %s: %v", e.Path, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Message is a parsed message with its full timestamp.
type Message struct {
	types.RawEmail
	Received time.Time
}

// ParseMessage reads one message. The body is the first text/plain part,
// or the first text/html part when there is no plain text.
func ParseMessage(r io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, err
	}
	defer mr.Close()

	msg := &Message{}
	h := mr.Header
	msg.Sender = formatSender(h)
	if subject, err := h.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = h.Get("Subject")
	}
	if date, err := h.Date(); err == nil && !date.IsZero() {
		msg.Received = date
		msg.ReceivedDate = date.Format(types.DateLayout)
	}

	var plain, html string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return nil, err
		}
		if p == nil {
			continue
		}
		inline, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := inline.ContentType()
		if ct == "" {
			ct = "text/plain"
		}
		switch {
		case ct == "text/plain" && plain == "":
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return nil, err
			}
			plain = string(b)
		case ct == "text/html" && html == "":
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return nil, err
			}
			html = string(b)
		}
	}
	msg.Body = plain
	if strings.TrimSpace(msg.Body) == "" {
		msg.Body = html
	}
	return msg, nil
}

func formatSender(h mail.Header) string {
	list, err := h.AddressList("From")
	if err != nil || len(list) == 0 {
		return strings.TrimSpace(h.Get("From"))
	}
	a := list[0]
	if a.Name == "" {
		return a.Address
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Address)
}

// DirSource serves every .eml file in a directory as one mailbox.
type DirSource struct {
	Dir    string
	Logger *zap.Logger
}

var _ scan.Source = (*DirSource)(nil)

// NewDirSource creates a DirSource for dir.
func NewDirSource(dir string, logger *zap.Logger) *DirSource {
	return &DirSource{Dir: dir, Logger: logging.OrNop(logger)}
}

// Name implements scan.Source.
func (d *DirSource) Name() string {
	return "dir:" + d.Dir
}

// Fetch implements scan.Source. Files that fail to parse are logged and
// skipped; newest messages come first.
func (d *DirSource) Fetch(ctx context.Context, opts scan.FetchOptions) ([]types.RawEmail, error) {
	logger := logging.OrNop(d.Logger)
	paths, err := filepath.Glob(filepath.Join(d.Dir, "*"+Extension))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.Dir, err)
	}
	if _, err := os.Stat(d.Dir); err != nil {
		return nil, fmt.Errorf("failed to open mailbox: %w", err)
	}
	sort.Strings(paths)

	var msgs []*Message
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := readFile(path)
		if err != nil {
			logger.Warn("skipping unreadable message", zap.Error(err))
			continue
		}
		if !opts.Since.IsZero() && !msg.Received.IsZero() && msg.Received.Before(opts.Since) {
			continue
		}
		msgs = append(msgs, msg)
	}

	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Received.After(msgs[j].Received) })
	if opts.MaxResults > 0 && len(msgs) > opts.MaxResults {
		msgs = msgs[:opts.MaxResults]
	}

	out := make([]types.RawEmail, len(msgs))
	for i, m := range msgs {
		out[i] = m.RawEmail
	}
	return out, nil
}

func readFile(path string) (*Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Cause: err}
	}
	defer f.Close()
	msg, err := ParseMessage(f)
	if err != nil {
		return nil, &ParseError{Path: path, Cause: err}
	}
	return msg, nil
}
