package admin

import (
	"context"
	"errors"
	"fmt"
	"invitation/src-server/model"
	"io"
	"strings"
	"time"

	"github.com/olebedev/when"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type ExportKind string

const (
	ExportAttendees ExportKind = "attendees"
	ExportGuestbook ExportKind = "guestbook"
	ExportEntries   ExportKind = "entries"
)

var (
	ErrUnknownExport = errors.New("unknown export kind")
	ErrBadSince      = errors.New("can't understand since")
)

const exportTimeLayout = "2006-01-02 15:04:05"

type Table struct {
	Header []string
	Rows   [][]string
}

// ExportCSV writes t as UTF-8 with a byte-order mark, every field quoted.
func ExportCSV(w io.Writer, t Table) error {
	tw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	if err := writeRecord(tw, t.Header); err != nil {
		return fmt.Errorf("ExportCSV: %w", err)
	}
	for _, row := range t.Rows {
		if err := writeRecord(tw, row); err != nil {
			return fmt.Errorf("ExportCSV: %w", err)
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("ExportCSV: %w", err)
	}
	return nil
}

func writeRecord(w io.Writer, fields []string) error {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func responseLabel(r model.Response) string {
	switch r {
	case model.ResponseYes:
		return "참석"
	case model.ResponseNo:
		return "불참"
	default:
		return "미정"
	}
}

// AttendeeTable marks an attendee as entered when a scanned entry carries
// the same name.
func AttendeeTable(rsvps []model.AttendeeRecord, entries []model.ScannedEntryRecord, loc *time.Location) Table {
	entered := make(map[string]bool, len(entries))
	for _, e := range entries {
		entered[e.Name] = true
	}
	t := Table{Header: []string{"이름", "응답", "등록시간", "전화번호", "이메일", "메시지", "입장상태"}}
	for _, r := range rsvps {
		status := "대기"
		if entered[r.Name] {
			status = "입장완료"
		}
		t.Rows = append(t.Rows, []string{
			r.Name, responseLabel(r.Response), r.CreatedAt.In(loc).Format(exportTimeLayout),
			r.Phone, r.Email, r.Message, status,
		})
	}
	return t
}

func GuestbookTable(msgs []model.GuestbookMessage, loc *time.Location) Table {
	t := Table{Header: []string{"이름", "메시지", "등록시간", "공개"}}
	for _, m := range msgs {
		shown := "N"
		if m.Approved {
			shown = "Y"
		}
		t.Rows = append(t.Rows, []string{m.Name, m.Message, m.CreatedAt.In(loc).Format(exportTimeLayout), shown})
	}
	return t
}

func EntryTable(entries []model.ScannedEntryRecord, loc *time.Location) Table {
	t := Table{Header: []string{"QR ID", "이름", "전화번호", "이메일", "입장시간"}}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{e.ID, e.Name, e.Phone, e.Email, e.EntryTime.In(loc).Format(exportTimeLayout)})
	}
	return t
}

// ParseSince accepts RFC 3339, a plain date, or English like
// "3 days ago" and "last monday".
func ParseSince(parser *when.Parser, s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, now.Location()); err == nil {
		return t, nil
	}
	result, err := parser.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseSince: %w: %w", ErrBadSince, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("ParseSince: %w: %q", ErrBadSince, s)
	}
	return result.Time, nil
}

// ExportFileName is e.g. attendees_2025-06-01.csv.
func ExportFileName(kind ExportKind, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", kind, now.Format(time.DateOnly))
}

// Export builds the table for kind, keeping records created at or after
// since when it is set.
func (d *Dashboard) Export(ctx context.Context, kind ExportKind, since time.Time, entries []model.ScannedEntryRecord, loc *time.Location) (Table, error) {
	if loc == nil {
		loc = time.Local
	}
	keep := func(t time.Time) bool { return since.IsZero() || !t.Before(since) }
	switch kind {
	case ExportAttendees:
		var rows []model.AttendeeRecord
		for _, r := range d.Attendees(ctx) {
			if keep(r.CreatedAt) {
				rows = append(rows, r)
			}
		}
		return AttendeeTable(rows, entries, loc), nil
	case ExportGuestbook:
		var rows []model.GuestbookMessage
		for _, m := range d.Guestbook(ctx) {
			if keep(m.CreatedAt) {
				rows = append(rows, m)
			}
		}
		return GuestbookTable(rows, loc), nil
	case ExportEntries:
		var rows []model.ScannedEntryRecord
		for _, e := range entries {
			if keep(e.EntryTime) {
				rows = append(rows, e)
			}
		}
		return EntryTable(rows, loc), nil
	}
	return Table{}, fmt.Errorf("(*Dashboard).Export: %w: %q", ErrUnknownExport, kind)
}
