// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

/*
serialize.go - Artifact Payload Serialization

This file converts backup payloads to and from the three artifact formats.
Two document kinds exist: a full backup serializes a snapshot, an
incremental serializes an IncrementalPayload (baseline link, change sets,
diff window). All record rows share one logical layout of five columns:

	id, kind, created_at, updated_at, fields

where fields is a JSON object of business columns. Timestamps are RFC3339
with nanoseconds, normalized to UTC.

Formats:

	json - envelope {version, taken_at, record_count, records}; incrementals
	       add {baseline_id, from_timestamp, to_timestamp, change_count,
	       changes{created, updated, deleted}}
	csv  - '#' comment preamble, header row, one record per row; incremental
	       rows carry a leading change column (created|updated|deleted)
	sql  - '--' comment preamble, one statement per record: INSERT for
	       snapshots and created records, INSERT OR REPLACE for updated
	       records, DELETE for deleted IDs

Every document declares its record or change count in its preamble or
envelope, and Unmarshal verifies the declaration against the payload, so a
truncated artifact fails at the parse stage instead of restoring short.
Incremental documents must additionally carry their baseline ID; a payload
without one does not parse.

Round Trip:
Marshal followed by Unmarshal yields records with identical IDs, kinds,
timestamps (compared as instants), and field values, in the same order, for
all three formats and both document kinds. The SQL parser understands
exactly the statements the SQL marshaller emits; it is not a general SQL
parser.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// payloadVersion tags serialized payloads so future layout changes stay
// detectable
const payloadVersion = "1"

// sqlTableName is the table the emitted statements target
const sqlTableName = "inventory_records"

var (
	csvHeader            = []string{"id", "kind", "created_at", "updated_at", "fields"}
	csvIncrementalHeader = []string{"change", "id", "kind", "created_at", "updated_at", "fields"}
)

// jsonEnvelope is the on-disk shape of a full backup in the json format
type jsonEnvelope struct {
	Version     string    `json:"version"`
	TakenAt     time.Time `json:"taken_at"`
	RecordCount int       `json:"record_count"`
	Records     []Record  `json:"records"`
}

// jsonIncrementalEnvelope is the on-disk shape of an incremental backup in
// the json format
type jsonIncrementalEnvelope struct {
	Version     string      `json:"version"`
	BaselineID  string      `json:"baseline_id"`
	From        time.Time   `json:"from_timestamp"`
	To          time.Time   `json:"to_timestamp"`
	ChangeCount int         `json:"change_count"`
	Changes     jsonChanges `json:"changes"`
}

type jsonChanges struct {
	Created []Record `json:"created"`
	Updated []Record `json:"updated"`
	Deleted []string `json:"deleted"`
}

// Marshal serializes a snapshot into the given format
func Marshal(format Format, snap *Snapshot) ([]byte, error) {
	switch format {
	case FormatJSON:
		return marshalJSON(snap)
	case FormatCSV:
		return marshalCSV(snap)
	case FormatSQL:
		return marshalSQL(snap)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Unmarshal parses a serialized snapshot payload back into a snapshot
func Unmarshal(format Format, data []byte) (*Snapshot, error) {
	switch format {
	case FormatJSON:
		return unmarshalJSON(data)
	case FormatCSV:
		return unmarshalCSV(data)
	case FormatSQL:
		return unmarshalSQL(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// MarshalIncremental serializes an incremental payload into the given format
func MarshalIncremental(format Format, p *IncrementalPayload) ([]byte, error) {
	switch format {
	case FormatJSON:
		return marshalIncrementalJSON(p)
	case FormatCSV:
		return marshalIncrementalCSV(p)
	case FormatSQL:
		return marshalIncrementalSQL(p)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// UnmarshalIncremental parses a serialized incremental payload. Beyond
// structural parsing, the payload must carry its baseline ID and a change
// count matching the sets; either failing is a parse error.
func UnmarshalIncremental(format Format, data []byte) (*IncrementalPayload, error) {
	switch format {
	case FormatJSON:
		return unmarshalIncrementalJSON(data)
	case FormatCSV:
		return unmarshalIncrementalCSV(data)
	case FormatSQL:
		return unmarshalIncrementalSQL(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// validateIncremental enforces the structural rules every parsed incremental
// payload must satisfy: a baseline link and a declared change count that
// matches the sets
func validateIncremental(p *IncrementalPayload, declared int) error {
	if p.BaselineID == "" {
		return fmt.Errorf("incremental payload is missing its baseline id")
	}
	if declared != p.ChangeCount() {
		return fmt.Errorf("change count mismatch: payload declares %d, sets hold %d",
			declared, p.ChangeCount())
	}
	return nil
}

// normalizeRecord returns a copy with timestamps in UTC so all formats
// serialize identical instants identically
func normalizeRecord(r Record) Record {
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r
}

func normalizeRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = normalizeRecord(r)
	}
	return out
}

// encodeFields renders the business columns as a compact JSON object.
// A nil or empty map becomes the empty string.
func encodeFields(fields map[string]string) (string, error) {
	if len(fields) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return string(raw), nil
}

// decodeFields parses the fields column written by encodeFields
func decodeFields(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	fields := make(map[string]string)
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	return fields, nil
}

// JSON format

func marshalJSON(snap *Snapshot) ([]byte, error) {
	env := jsonEnvelope{
		Version:     payloadVersion,
		TakenAt:     snap.TakenAt.UTC(),
		RecordCount: len(snap.Records),
		Records:     normalizeRecords(snap.Records),
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json payload: %w", err)
	}
	return data, nil
}

func unmarshalJSON(data []byte) (*Snapshot, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse json payload: %w", err)
	}

	if env.Version != payloadVersion {
		return nil, fmt.Errorf("unsupported payload version: %q", env.Version)
	}
	if env.RecordCount != len(env.Records) {
		return nil, fmt.Errorf("record count mismatch: envelope says %d, payload has %d",
			env.RecordCount, len(env.Records))
	}

	return &Snapshot{TakenAt: env.TakenAt, Records: env.Records}, nil
}

func marshalIncrementalJSON(p *IncrementalPayload) ([]byte, error) {
	env := jsonIncrementalEnvelope{
		Version:     payloadVersion,
		BaselineID:  p.BaselineID,
		From:        p.From.UTC(),
		To:          p.To.UTC(),
		ChangeCount: p.ChangeCount(),
		Changes: jsonChanges{
			Created: normalizeRecords(p.Created),
			Updated: normalizeRecords(p.Updated),
			Deleted: p.Deleted,
		},
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json payload: %w", err)
	}
	return data, nil
}

func unmarshalIncrementalJSON(data []byte) (*IncrementalPayload, error) {
	var env jsonIncrementalEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse json payload: %w", err)
	}
	if env.Version != payloadVersion {
		return nil, fmt.Errorf("unsupported payload version: %q", env.Version)
	}

	p := &IncrementalPayload{
		BaselineID: env.BaselineID,
		From:       env.From,
		To:         env.To,
		Created:    env.Changes.Created,
		Updated:    env.Changes.Updated,
		Deleted:    env.Changes.Deleted,
	}
	if err := validateIncremental(p, env.ChangeCount); err != nil {
		return nil, err
	}
	return p, nil
}

// Comment preambles (csv and sql)

// writePreamble emits the comment preamble shared by the csv and sql
// formats: a version line, then one "key: value" line per pair
func writePreamble(buf *bytes.Buffer, lead string, pairs [][2]string) {
	fmt.Fprintf(buf, "%s archivarius export v%s\n", lead, payloadVersion)
	for _, kv := range pairs {
		fmt.Fprintf(buf, "%s %s: %s\n", lead, kv[0], kv[1])
	}
}

// snapshotPreamble renders the snapshot envelope fields as preamble pairs
func snapshotPreamble(snap *Snapshot) [][2]string {
	return [][2]string{
		{"taken_at", snap.TakenAt.UTC().Format(time.RFC3339Nano)},
		{"record_count", strconv.Itoa(len(snap.Records))},
	}
}

// incrementalPreamble renders the incremental envelope fields as preamble
// pairs
func incrementalPreamble(p *IncrementalPayload) [][2]string {
	return [][2]string{
		{"baseline_id", p.BaselineID},
		{"from_timestamp", p.From.UTC().Format(time.RFC3339Nano)},
		{"to_timestamp", p.To.UTC().Format(time.RFC3339Nano)},
		{"change_count", strconv.Itoa(p.ChangeCount())},
	}
}

// preamble holds the key-value lines parsed back out of a comment preamble
// and the offset of the first byte after it
type preamble struct {
	fields map[string]string
	offset int
}

// parsePreamble reads the leading comment lines written by writePreamble.
// Lines without a colon, like the version line, carry no key and are
// skipped.
func parsePreamble(data []byte, lead string) *preamble {
	p := &preamble{fields: make(map[string]string)}

	for p.offset < len(data) {
		rest := data[p.offset:]
		if !bytes.HasPrefix(rest, []byte(lead)) {
			break
		}
		lineEnd := bytes.IndexByte(rest, '\n')
		if lineEnd < 0 {
			lineEnd = len(rest)
		}
		line := strings.TrimPrefix(string(rest[:lineEnd]), lead)
		p.offset += lineEnd
		if p.offset < len(data) {
			p.offset++ // consume the newline
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		p.fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return p
}

// timeField parses an RFC3339 preamble value, returning the zero time when
// the key is absent
func (p *preamble) timeField(key string) (time.Time, error) {
	raw, ok := p.fields[key]
	if !ok {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s in preamble: %w", key, err)
	}
	return t, nil
}

// countField parses a required integer preamble value
func (p *preamble) countField(key string) (int, error) {
	raw, ok := p.fields[key]
	if !ok {
		return 0, fmt.Errorf("payload preamble is missing %s", key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s in preamble: %w", key, err)
	}
	return n, nil
}

// incrementalFromPreamble rebuilds the payload envelope from preamble
// fields, returning the declared change count for validation after the rows
// are read
func incrementalFromPreamble(pre *preamble) (*IncrementalPayload, int, error) {
	declared, err := pre.countField("change_count")
	if err != nil {
		return nil, 0, err
	}
	from, err := pre.timeField("from_timestamp")
	if err != nil {
		return nil, 0, err
	}
	to, err := pre.timeField("to_timestamp")
	if err != nil {
		return nil, 0, err
	}

	return &IncrementalPayload{
		BaselineID: pre.fields["baseline_id"],
		From:       from,
		To:         to,
		Created:    make([]Record, 0),
		Updated:    make([]Record, 0),
		Deleted:    make([]string, 0),
	}, declared, nil
}

// CSV format

func marshalCSV(snap *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	writePreamble(&buf, "#", snapshotPreamble(snap))

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range snap.Records {
		r = normalizeRecord(r)
		fields, err := encodeFields(r.Fields)
		if err != nil {
			return nil, err
		}
		row := []string{
			r.ID,
			r.Kind,
			r.CreatedAt.Format(time.RFC3339Nano),
			r.UpdatedAt.Format(time.RFC3339Nano),
			fields,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv payload: %w", err)
	}
	return buf.Bytes(), nil
}

func unmarshalCSV(data []byte) (*Snapshot, error) {
	pre := parsePreamble(data, "#")
	recordCount, err := pre.countField("record_count")
	if err != nil {
		return nil, err
	}
	takenAt, err := pre.timeField("taken_at")
	if err != nil {
		return nil, err
	}

	rows, err := readCSVRows(data[pre.offset:], csvHeader)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := recordFromColumns(row[0], row[1], row[2], row[3], row[4])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if recordCount != len(records) {
		return nil, fmt.Errorf("record count mismatch: preamble says %d, payload has %d",
			recordCount, len(records))
	}

	return &Snapshot{TakenAt: takenAt, Records: records}, nil
}

func marshalIncrementalCSV(p *IncrementalPayload) ([]byte, error) {
	var buf bytes.Buffer
	writePreamble(&buf, "#", incrementalPreamble(p))

	w := csv.NewWriter(&buf)
	if err := w.Write(csvIncrementalHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	writeRecord := func(change string, r Record) error {
		r = normalizeRecord(r)
		fields, err := encodeFields(r.Fields)
		if err != nil {
			return err
		}
		return w.Write([]string{
			change,
			r.ID,
			r.Kind,
			r.CreatedAt.Format(time.RFC3339Nano),
			r.UpdatedAt.Format(time.RFC3339Nano),
			fields,
		})
	}

	for _, r := range p.Created {
		if err := writeRecord("created", r); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	for _, r := range p.Updated {
		if err := writeRecord("updated", r); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	for _, id := range p.Deleted {
		// Deleted rows carry only the change kind and the id
		if err := w.Write([]string{"deleted", id, "", "", "", ""}); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv payload: %w", err)
	}
	return buf.Bytes(), nil
}

func unmarshalIncrementalCSV(data []byte) (*IncrementalPayload, error) {
	pre := parsePreamble(data, "#")
	p, declared, err := incrementalFromPreamble(pre)
	if err != nil {
		return nil, err
	}

	rows, err := readCSVRows(data[pre.offset:], csvIncrementalHeader)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		switch change := row[0]; change {
		case "created", "updated":
			rec, err := recordFromColumns(row[1], row[2], row[3], row[4], row[5])
			if err != nil {
				return nil, err
			}
			if change == "created" {
				p.Created = append(p.Created, rec)
			} else {
				p.Updated = append(p.Updated, rec)
			}
		case "deleted":
			p.Deleted = append(p.Deleted, row[1])
		default:
			return nil, fmt.Errorf("unknown change kind %q in csv payload", change)
		}
	}

	if err := validateIncremental(p, declared); err != nil {
		return nil, err
	}
	return p, nil
}

// readCSVRows parses the csv body after the preamble, validates the header
// row, and returns the data rows
func readCSVRows(body []byte, header []string) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = len(header)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv payload: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv payload is missing its header row")
	}
	for i, name := range header {
		if rows[0][i] != name {
			return nil, fmt.Errorf("unexpected csv header column %d: got %q, want %q", i, rows[0][i], name)
		}
	}
	return rows[1:], nil
}

// recordFromColumns rebuilds a record from the five serialized columns
func recordFromColumns(id, kind, createdAt, updatedAt, fields string) (Record, error) {
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("record %s: invalid created_at: %w", id, err)
	}
	updated, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("record %s: invalid updated_at: %w", id, err)
	}
	decoded, err := decodeFields(fields)
	if err != nil {
		return Record{}, fmt.Errorf("record %s: %w", id, err)
	}
	return Record{
		ID:        id,
		Kind:      kind,
		CreatedAt: created,
		UpdatedAt: updated,
		Fields:    decoded,
	}, nil
}

// SQL format

// quoteSQL renders a value as a single-quoted SQL string literal with
// embedded quotes doubled
func quoteSQL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// statementPrefix renders the fixed head of a row-bearing statement with the
// given verb
func statementPrefix(verb string) string {
	return fmt.Sprintf("%s %s (id, kind, created_at, updated_at, fields) VALUES (", verb, sqlTableName)
}

// writeRowStatements emits one row-bearing statement per record
func writeRowStatements(buf *bytes.Buffer, verb string, records []Record) error {
	for _, r := range records {
		r = normalizeRecord(r)
		fields, err := encodeFields(r.Fields)
		if err != nil {
			return err
		}
		fmt.Fprintf(buf, "%s%s, %s, %s, %s, %s);\n",
			statementPrefix(verb),
			quoteSQL(r.ID),
			quoteSQL(r.Kind),
			quoteSQL(r.CreatedAt.Format(time.RFC3339Nano)),
			quoteSQL(r.UpdatedAt.Format(time.RFC3339Nano)),
			quoteSQL(fields),
		)
	}
	return nil
}

func marshalSQL(snap *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	writePreamble(&buf, "--", snapshotPreamble(snap))

	if err := writeRowStatements(&buf, "INSERT INTO", snap.Records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalSQL(data []byte) (*Snapshot, error) {
	pre := parsePreamble(data, "--")
	recordCount, err := pre.countField("record_count")
	if err != nil {
		return nil, err
	}
	takenAt, err := pre.timeField("taken_at")
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0)
	for lineNo, line := range strings.Split(string(data[pre.offset:]), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		rec, err := parseInsertStatement(line)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", lineNo+1, err)
		}
		records = append(records, rec)
	}

	if recordCount != len(records) {
		return nil, fmt.Errorf("record count mismatch: preamble says %d, payload has %d",
			recordCount, len(records))
	}

	return &Snapshot{TakenAt: takenAt, Records: records}, nil
}

func marshalIncrementalSQL(p *IncrementalPayload) ([]byte, error) {
	var buf bytes.Buffer
	writePreamble(&buf, "--", incrementalPreamble(p))

	if err := writeRowStatements(&buf, "INSERT INTO", p.Created); err != nil {
		return nil, err
	}
	if err := writeRowStatements(&buf, "INSERT OR REPLACE INTO", p.Updated); err != nil {
		return nil, err
	}
	for _, id := range p.Deleted {
		fmt.Fprintf(&buf, "DELETE FROM %s WHERE id = %s;\n", sqlTableName, quoteSQL(id))
	}

	return buf.Bytes(), nil
}

func unmarshalIncrementalSQL(data []byte) (*IncrementalPayload, error) {
	pre := parsePreamble(data, "--")
	p, declared, err := incrementalFromPreamble(pre)
	if err != nil {
		return nil, err
	}

	insertPrefix := statementPrefix("INSERT INTO")
	replacePrefix := statementPrefix("INSERT OR REPLACE INTO")

	for lineNo, line := range strings.Split(string(data[pre.offset:]), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		switch {
		case strings.HasPrefix(line, replacePrefix):
			rec, err := parseRowStatement(line, replacePrefix)
			if err != nil {
				return nil, fmt.Errorf("statement %d: %w", lineNo+1, err)
			}
			p.Updated = append(p.Updated, rec)
		case strings.HasPrefix(line, insertPrefix):
			rec, err := parseRowStatement(line, insertPrefix)
			if err != nil {
				return nil, fmt.Errorf("statement %d: %w", lineNo+1, err)
			}
			p.Created = append(p.Created, rec)
		default:
			id, err := parseDeleteStatement(line)
			if err != nil {
				return nil, fmt.Errorf("statement %d: %w", lineNo+1, err)
			}
			p.Deleted = append(p.Deleted, id)
		}
	}

	if err := validateIncremental(p, declared); err != nil {
		return nil, err
	}
	return p, nil
}

// parseInsertStatement parses one INSERT emitted by marshalSQL back into a
// record
func parseInsertStatement(line string) (Record, error) {
	return parseRowStatement(line, statementPrefix("INSERT INTO"))
}

// parseRowStatement parses one row-bearing statement with the given prefix
// back into a record
func parseRowStatement(line, prefix string) (Record, error) {
	if !strings.HasPrefix(line, prefix) {
		return Record{}, fmt.Errorf("unrecognized statement: %q", truncateForError(line))
	}

	rest := line[len(prefix):]
	values := make([]string, 0, 5)
	pos := 0
	for i := 0; i < 5; i++ {
		val, next, err := scanQuoted(rest, pos)
		if err != nil {
			return Record{}, err
		}
		values = append(values, val)
		pos = next
		// skip the ", " separator between values
		for pos < len(rest) && (rest[pos] == ',' || rest[pos] == ' ') {
			pos++
		}
	}

	if !strings.HasPrefix(rest[pos:], ");") {
		return Record{}, fmt.Errorf("statement does not end with \");\": %q", truncateForError(line))
	}

	return recordFromColumns(values[0], values[1], values[2], values[3], values[4])
}

// parseDeleteStatement extracts the record ID from a DELETE emitted by
// marshalIncrementalSQL
func parseDeleteStatement(line string) (string, error) {
	prefix := fmt.Sprintf("DELETE FROM %s WHERE id = ", sqlTableName)
	if !strings.HasPrefix(line, prefix) {
		return "", fmt.Errorf("unrecognized statement: %q", truncateForError(line))
	}

	rest := line[len(prefix):]
	id, pos, err := scanQuoted(rest, 0)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(rest[pos:], ";") {
		return "", fmt.Errorf("statement does not end with \";\": %q", truncateForError(line))
	}
	return id, nil
}

// scanQuoted reads a single-quoted SQL string literal starting at pos,
// un-doubling embedded quotes. Returns the literal value and the position
// just past the closing quote.
func scanQuoted(s string, pos int) (string, int, error) {
	if pos >= len(s) || s[pos] != '\'' {
		return "", 0, fmt.Errorf("expected quoted value at offset %d", pos)
	}
	pos++

	var b strings.Builder
	for pos < len(s) {
		c := s[pos]
		if c == '\'' {
			if pos+1 < len(s) && s[pos+1] == '\'' {
				b.WriteByte('\'')
				pos += 2
				continue
			}
			return b.String(), pos + 1, nil
		}
		b.WriteByte(c)
		pos++
	}
	return "", 0, fmt.Errorf("unterminated quoted value")
}

// truncateForError keeps statements readable in error messages
func truncateForError(s string) string {
	const max = 80
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
