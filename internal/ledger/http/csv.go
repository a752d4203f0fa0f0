package ledgerhttp

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/timeguard/timeguard/internal/ledger"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

var csvHeader = []string{
	"id", "timestamp", "actor_id", "action", "table", "record_id",
	"old_values", "new_values", "source_ip", "previous_hash", "entry_hash",
}

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if !strings.HasSuffix(line, "\r\n") {
		line = strings.TrimSuffix(line, "\n") + "\r\n"
	}
	_, err := s.buf.WriteString(line)
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

func writeLedgerCSV(w io.Writer, filter ledger.ExportFilter, entries []ledger.Entry) error {
	streamer := newCSVStreamer(w)
	if err := streamer.writeComment("# Export: audit ledger"); err != nil {
		return err
	}
	rangeLine := fmt.Sprintf("# Range: %s to %s", filter.From.Format(dateLayout), filter.To.Format(dateLayout))
	if filter.Table != "" {
		rangeLine += " table=" + filter.Table
	}
	if err := streamer.writeComment(rangeLine); err != nil {
		return err
	}
	if err := streamer.writeRow(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := streamer.writeRow(csvRow(e)); err != nil {
			return err
		}
	}
	return streamer.Flush()
}

func csvRow(e ledger.Entry) []string {
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.Timestamp.UTC().Format(time.RFC3339),
		strconv.FormatInt(e.ActorID, 10),
		e.Action,
		e.Table,
		optionalInt(e.RecordID),
		optionalPayload(e.OldValues),
		optionalPayload(e.NewValues),
		optionalString(e.SourceIP),
		e.PreviousHash,
		e.EntryHash,
	}
}

// NULL columns are written as ledger.NullToken so an export can be
// re-hashed offline.
func optionalInt(v *int64) string {
	if v == nil {
		return ledger.NullToken
	}
	return strconv.FormatInt(*v, 10)
}

func optionalString(v *string) string {
	if v == nil {
		return ledger.NullToken
	}
	return *v
}

func optionalPayload(p ledger.Payload) string {
	if p.IsNull() {
		return ledger.NullToken
	}
	return string(p)
}
