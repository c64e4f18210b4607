package suptest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var knownTables = map[string]bool{
	"users":           true,
	"servers":         true,
	"channels":        true,
	"messages":        true,
	"server_members":  true,
	"roles":           true,
	"friendships":     true,
	"direct_messages": true,
	"dm_messages":     true,
}

// embedDefaults maps an embedded table to the referencing column when the
// request carries no foreign-key hint.
var embedDefaults = map[string]string{
	"users": "user_id",
	"roles": "role_id",
}

func wantsObject(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "vnd.pgrst.object")
}

func tableParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	table := chi.URLParam(r, "table")
	if !knownTables[table] {
		writeError(w, http.StatusNotFound, fmt.Sprintf("relation %q does not exist", table))
		return "", false
	}
	return table, true
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	table, ok := tableParam(w, r)
	if !ok {
		return
	}

	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := s.fetchRows(table, q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if wantsObject(r) {
		if len(rows) == 0 {
			writeError(w, http.StatusNotAcceptable, "JSON object requested, multiple (or no) rows returned")
			return
		}
		writeJSON(w, http.StatusOK, rows[0])
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	table, ok := tableParam(w, r)
	if !ok {
		return
	}

	var row map[string]any
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}

	prefer := r.Header.Get("Prefer")
	if strings.Contains(prefer, "resolution=merge-duplicates") {
		if done := s.mergeDuplicate(w, r, table, row); done {
			return
		}
	}

	s.applyDefaults(table, row)

	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	args := make([]any, len(cols))
	for i, col := range cols {
		args[i] = toDBValue(table, col, row[col])
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders)
	if _, err := s.db.Exec(stmt, args...); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	if !strings.Contains(prefer, "return=representation") {
		w.WriteHeader(http.StatusCreated)
		return
	}

	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.where = "id = ?"
	q.args = []any{row["id"]}
	q.limit = 1
	q.orderBy = ""

	created, err := s.fetchRows(table, q)
	if err != nil || len(created) == 0 {
		writeError(w, http.StatusInternalServerError, "reading back inserted row")
		return
	}
	if wantsObject(r) {
		writeJSON(w, http.StatusCreated, created[0])
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// mergeDuplicate implements upsert: when a row with the same conflict-column
// values exists, it is updated in place. Reports whether the request was
// fully handled.
func (s *Server) mergeDuplicate(w http.ResponseWriter, r *http.Request, table string, row map[string]any) bool {
	conflictCols := strings.Split(r.URL.Query().Get("on_conflict"), ",")
	if len(conflictCols) == 0 || conflictCols[0] == "" {
		return false
	}

	var conds []string
	var args []any
	for _, col := range conflictCols {
		conds = append(conds, col+" = ?")
		args = append(args, toDBValue(table, col, row[col]))
	}

	var id string
	err := s.db.QueryRow(
		fmt.Sprintf("SELECT id FROM %s WHERE %s", table, strings.Join(conds, " AND ")),
		args...,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return true
	}

	sets := make([]string, 0, len(row))
	setArgs := make([]any, 0, len(row))
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if col == "id" {
			continue
		}
		sets = append(sets, col+" = ?")
		setArgs = append(setArgs, toDBValue(table, col, row[col]))
	}
	setArgs = append(setArgs, id)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", "))
	if _, err := s.db.Exec(stmt, setArgs...); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return true
	}
	w.WriteHeader(http.StatusCreated)
	return true
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	table, ok := tableParam(w, r)
	if !ok {
		return
	}

	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var changes map[string]any
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}

	cols := make([]string, 0, len(changes))
	for col := range changes {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		sets[i] = col + " = ?"
		args[i] = toDBValue(table, col, changes[col])
	}
	args = append(args, q.args...)

	stmt := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(sets, ", "))
	if q.where != "" {
		stmt += " WHERE " + q.where
	}
	if _, err := s.db.Exec(stmt, args...); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	table, ok := tableParam(w, r)
	if !ok {
		return
	}

	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stmt := "DELETE FROM " + table
	if q.where != "" {
		stmt += " WHERE " + q.where
	}
	if _, err := s.db.Exec(stmt, q.args...); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fetchRows runs a parsed query and resolves its embeds.
func (s *Server) fetchRows(table string, q restQuery) ([]map[string]any, error) {
	stmt := "SELECT * FROM " + table
	if q.where != "" {
		stmt += " WHERE " + q.where
	}
	if q.orderBy != "" {
		stmt += " ORDER BY " + q.orderBy
	}
	if q.limit >= 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.limit)
	}

	dbRows, err := s.db.Query(stmt, q.args...)
	if err != nil {
		return nil, err
	}
	defer dbRows.Close()

	rows, err := scanRows(dbRows)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		encodeJSONColumns(table, row)
		for _, spec := range q.embeds {
			if err := s.attachEmbed(table, row, spec); err != nil {
				return nil, err
			}
		}
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}

// attachEmbed resolves one relationship embed for one row.
func (s *Server) attachEmbed(parent string, row map[string]any, spec embedSpec) error {
	localCol := embedDefaults[spec.table]
	if spec.hint != "" {
		localCol = strings.TrimSuffix(strings.TrimPrefix(spec.hint, parent+"_"), "_fkey")
	}
	if localCol == "" {
		return fmt.Errorf("cannot resolve embed %q on %s", spec.alias, parent)
	}

	fk, ok := row[localCol]
	if !ok || fk == nil {
		row[spec.alias] = nil
		return nil
	}

	dbRows, err := s.db.Query(fmt.Sprintf("SELECT * FROM %s WHERE id = ?", spec.table), fk)
	if err != nil {
		return err
	}
	defer dbRows.Close()

	related, err := scanRows(dbRows)
	if err != nil {
		return err
	}
	if len(related) == 0 {
		row[spec.alias] = nil
		return nil
	}

	obj := related[0]
	encodeJSONColumns(spec.table, obj)

	if len(spec.cols) > 0 && spec.cols[0] != "*" {
		projected := make(map[string]any, len(spec.cols))
		for _, col := range spec.cols {
			projected[col] = obj[col]
		}
		obj = projected
	}
	row[spec.alias] = obj
	return nil
}

func scanRows(dbRows *sql.Rows) ([]map[string]any, error) {
	cols, err := dbRows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for dbRows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := dbRows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			switch v := vals[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		out = append(out, row)
	}
	return out, dbRows.Err()
}

func encodeJSONColumns(table string, row map[string]any) {
	for col := range jsonColumns[table] {
		if raw, ok := row[col].(string); ok {
			row[col] = json.RawMessage(raw)
		}
	}
}

// toDBValue converts a decoded JSON value into its stored form.
func toDBValue(table, col string, v any) any {
	if jsonColumns[table][col] {
		if v == nil {
			return nil
		}
		encoded, _ := json.Marshal(v)
		return string(encoded)
	}
	if f, ok := v.(float64); ok && f == math.Trunc(f) {
		return int64(f)
	}
	return v
}

// applyDefaults fills the columns the real store would default.
func (s *Server) applyDefaults(table string, row map[string]any) {
	if _, ok := row["id"]; !ok {
		row["id"] = uuid.NewString()
	}

	now := s.clk.now()
	switch table {
	case "users":
		setDefault(row, "status", "online")
		setDefault(row, "avatar_url", "")
		setDefault(row, "created_at", now)
	case "servers":
		setDefault(row, "icon_url", "")
		setDefault(row, "created_at", now)
	case "channels":
		setDefault(row, "type", "text")
		setDefault(row, "position", int64(0))
		setDefault(row, "created_at", now)
	case "messages":
		setDefault(row, "created_at", now)
		setDefault(row, "updated_at", row["created_at"])
	case "dm_messages", "direct_messages", "friendships":
		setDefault(row, "created_at", now)
		if table == "friendships" {
			setDefault(row, "status", "pending")
		}
	case "server_members":
		setDefault(row, "joined_at", now)
	case "roles":
		setDefault(row, "color", "#99aab5")
		setDefault(row, "permissions", map[string]any{})
		setDefault(row, "position", int64(0))
	}
}

func setDefault(row map[string]any, col string, val any) {
	if _, ok := row[col]; !ok {
		row[col] = val
	}
}
