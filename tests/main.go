// Command mock-jira is a small in-memory Jira REST v2 stand-in for developing
// and demoing jiraflow templates without a real server. It serves the
// endpoints jiraflow drives (search, issue create/get/update, issue links and
// transitions), honours startAt/maxResults pagination and can be seeded with
// issues from a directory of JSON files. JQL is accepted but not evaluated;
// every stored issue matches.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/containeroo/tinyflags"
)

// issue is one stored issue in the wire shape jiraflow reads.
type issue struct {
	ID     string         `json:"id"`
	Key    string         `json:"key"`
	Self   string         `json:"self"`
	Fields map[string]any `json:"fields"`
}

// workflow is the fixed transition set every issue offers.
var workflow = []map[string]any{
	{"id": "11", "name": "To Do", "to": map[string]any{"name": "To Do"}},
	{"id": "21", "name": "In Progress", "to": map[string]any{"name": "In Progress"}},
	{"id": "31", "name": "Done", "to": map[string]any{"name": "Done"}},
}

// store holds every issue the mock knows about. The order slice keeps
// search pages stable across requests.
type store struct {
	mu      sync.Mutex
	issues  map[string]*issue
	order   []string
	nextID  int
	project string
}

func newStore(project string) *store {
	return &store{issues: map[string]*issue{}, project: project}
}

// seed loads every *.json file of dir into the store. A file holds either a
// single issue object or an array of them; each needs at least a key.
func (s *store) seed(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}

		var batch []*issue
		if err := json.Unmarshal(raw, &batch); err != nil {
			var single issue
			if err := json.Unmarshal(raw, &single); err != nil {
				return fmt.Errorf("%s: neither an issue nor an issue list: %w", entry.Name(), err)
			}
			batch = []*issue{&single}
		}
		for _, is := range batch {
			if is.Key == "" {
				return fmt.Errorf("%s: issue without a key", entry.Name())
			}
			s.put(is)
		}
	}
	return nil
}

// put registers an issue, assigning an id when the seed file had none.
func (s *store) put(is *issue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	if is.ID == "" {
		is.ID = strconv.Itoa(10000 + s.nextID)
	}
	if is.Fields == nil {
		is.Fields = map[string]any{}
	}
	if _, ok := s.issues[is.Key]; !ok {
		s.order = append(s.order, is.Key)
	}
	s.issues[is.Key] = is
}

// create stores a new issue from a create request's field map and returns it.
func (s *store) create(fields map[string]any) *issue {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	prefix := projectKey(fields, s.project)
	is := &issue{
		ID:     strconv.Itoa(10000 + s.nextID),
		Key:    fmt.Sprintf("%s-%d", prefix, s.nextID),
		Fields: fields,
	}
	now := time.Now().Format("2006-01-02T15:04:05.000-0700")
	is.Fields["created"] = now
	is.Fields["updated"] = now
	s.order = append(s.order, is.Key)
	s.issues[is.Key] = is
	return is
}

// get returns the issue with the given key, or nil.
func (s *store) get(key string) *issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issues[key]
}

// update merges fields into an existing issue.
func (s *store) update(key string, fields map[string]any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	is, ok := s.issues[key]
	if !ok {
		return false
	}
	for k, v := range fields {
		is.Fields[k] = v
	}
	is.Fields["updated"] = time.Now().Format("2006-01-02T15:04:05.000-0700")
	return true
}

// page returns one search page plus the total count.
func (s *store) page(startAt, maxResults int) ([]*issue, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.order)
	if startAt < 0 {
		startAt = 0
	}
	if startAt > total {
		startAt = total
	}
	end := startAt + maxResults
	if end > total {
		end = total
	}

	out := make([]*issue, 0, end-startAt)
	for _, key := range s.order[startAt:end] {
		out = append(out, s.issues[key])
	}
	return out, total
}

// projectKey derives the key prefix for a new issue from its project field,
// accepting both the plain string and the {"key": ...} object form.
func projectKey(fields map[string]any, fallback string) string {
	switch v := fields["project"].(type) {
	case string:
		if v != "" {
			return strings.ToUpper(v)
		}
	case map[string]any:
		if key, ok := v["key"].(string); ok && key != "" {
			return strings.ToUpper(key)
		}
	}
	return fallback
}

func main() {
	tf := tinyflags.NewFlagSet("mock-jira", tinyflags.ExitOnError)
	listenAddr := tf.TCPAddr("listen-address", &net.TCPAddr{IP: nil, Port: 8081}, "HTTP listen address").Value()
	var (
		flagDataDir string
		flagProject string
		flagDelay   bool
		flagLogBody bool
	)
	tf.StringVar(&flagDataDir, "data-dir", "", "Directory of *.json issue files to seed the store with").Value()
	tf.StringVar(&flagProject, "project", "MOCK", "Key prefix for created issues without a project field").Value()
	tf.BoolVar(&flagDelay, "random-delay", false, "Delay every response by 200-1000ms").Value()
	tf.BoolVar(&flagLogBody, "log-body", false, "Log JSON request bodies (may contain secrets)").Value()

	if err := tf.Parse(os.Args[1:]); err != nil {
		log.Fatal("flag parse error: ", err)
	}

	st := newStore(strings.ToUpper(flagProject))
	if flagDataDir != "" {
		if err := st.seed(flagDataDir); err != nil {
			log.Fatalf("seed error: %v", err)
		}
		log.Printf("seeded %d issue(s) from %s", len(st.order), flagDataDir)
	}

	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if flagDelay {
				time.Sleep(time.Duration(200+rand.Intn(800)) * time.Millisecond)
			}
			logRequest(r, flagLogBody)
			h(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/2/search", wrap(func(w http.ResponseWriter, r *http.Request) {
		handleSearch(w, r, st)
	}))
	mux.HandleFunc("POST /rest/api/2/issue", wrap(func(w http.ResponseWriter, r *http.Request) {
		handleCreate(w, r, st)
	}))
	mux.HandleFunc("GET /rest/api/2/issue/{key}", wrap(func(w http.ResponseWriter, r *http.Request) {
		handleGet(w, r, st)
	}))
	mux.HandleFunc("PUT /rest/api/2/issue/{key}", wrap(func(w http.ResponseWriter, r *http.Request) {
		handleUpdate(w, r, st)
	}))
	mux.HandleFunc("POST /rest/api/2/issueLink", wrap(func(w http.ResponseWriter, r *http.Request) {
		handleLink(w, r, st)
	}))
	mux.HandleFunc("GET /rest/api/2/issue/{key}/transitions", wrap(func(w http.ResponseWriter, r *http.Request) {
		handleTransitions(w, r, st)
	}))
	mux.HandleFunc("POST /rest/api/2/issue/{key}/transitions", wrap(func(w http.ResponseWriter, r *http.Request) {
		handleTransition(w, r, st)
	}))

	addr := (*listenAddr).String()
	log.Printf("mock Jira listening on %s (project prefix: %s)", addr, st.project)
	log.Fatal(http.ListenAndServe(addr, mux))
}

// handleSearch serves one page of every stored issue, ignoring the JQL.
func handleSearch(w http.ResponseWriter, r *http.Request, st *store) {
	startAt := intQuery(r, "startAt", 0)
	maxResults := intQuery(r, "maxResults", 50)
	if maxResults <= 0 {
		maxResults = 50
	}

	issues, total := st.page(startAt, maxResults)
	for _, is := range issues {
		fillSelf(r, is)
	}
	log.Printf("search jql=%q -> %d of %d issue(s)", r.URL.Query().Get("jql"), len(issues), total)

	writeJSON(w, http.StatusOK, map[string]any{
		"startAt":    startAt,
		"maxResults": maxResults,
		"total":      total,
		"issues":     issues,
	})
}

// handleCreate stores a new issue and replies with its identifiers.
func handleCreate(w http.ResponseWriter, r *http.Request, st *store) {
	var req struct {
		Fields map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Fields) == 0 {
		writeError(w, http.StatusBadRequest, "create request needs a fields object")
		return
	}

	is := st.create(req.Fields)
	fillSelf(r, is)
	log.Printf("created %s", is.Key)
	writeJSON(w, http.StatusCreated, map[string]any{"id": is.ID, "key": is.Key, "self": is.Self})
}

// handleGet serves one issue with its full field map.
func handleGet(w http.ResponseWriter, r *http.Request, st *store) {
	key := r.PathValue("key")
	is := st.get(key)
	if is == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("issue %s does not exist", key))
		return
	}
	fillSelf(r, is)
	writeJSON(w, http.StatusOK, is)
}

// handleUpdate merges the request fields into an existing issue.
func handleUpdate(w http.ResponseWriter, r *http.Request, st *store) {
	key := r.PathValue("key")
	var req struct {
		Fields map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid update request body")
		return
	}
	if !st.update(key, req.Fields) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("issue %s does not exist", key))
		return
	}
	log.Printf("updated %s (%s)", key, strings.Join(sortedKeys(req.Fields), ", "))
	w.WriteHeader(http.StatusNoContent)
}

// handleLink checks both ends exist and records the link in the log only.
func handleLink(w http.ResponseWriter, r *http.Request, st *store) {
	var req struct {
		Type         struct{ Name string } `json:"type"`
		InwardIssue  struct{ Key string }  `json:"inwardIssue"`
		OutwardIssue struct{ Key string }  `json:"outwardIssue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid issueLink request body")
		return
	}
	for _, key := range []string{req.InwardIssue.Key, req.OutwardIssue.Key} {
		if st.get(key) == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("issue %s does not exist", key))
			return
		}
	}
	log.Printf("linked %s <-%s-> %s", req.InwardIssue.Key, req.Type.Name, req.OutwardIssue.Key)
	w.WriteHeader(http.StatusCreated)
}

// handleTransitions lists the fixed workflow for an existing issue.
func handleTransitions(w http.ResponseWriter, r *http.Request, st *store) {
	key := r.PathValue("key")
	if st.get(key) == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("issue %s does not exist", key))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transitions": workflow})
}

// handleTransition applies a transition by id and sets the issue status.
func handleTransition(w http.ResponseWriter, r *http.Request, st *store) {
	key := r.PathValue("key")
	var req struct {
		Transition struct{ ID string } `json:"transition"`
		Fields     map[string]any      `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid transition request body")
		return
	}

	var target string
	for _, tr := range workflow {
		if tr["id"] == req.Transition.ID {
			target, _ = tr["name"].(string)
		}
	}
	if target == "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("transition %q is not valid", req.Transition.ID))
		return
	}

	fields := req.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	fields["status"] = map[string]any{"name": target}
	if !st.update(key, fields) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("issue %s does not exist", key))
		return
	}
	log.Printf("transitioned %s to %q", key, target)
	w.WriteHeader(http.StatusNoContent)
}

// fillSelf sets the issue's self URL from the incoming request host.
func fillSelf(r *http.Request, is *issue) {
	if is.Self == "" {
		is.Self = "http://" + r.Host + "/rest/api/2/issue/" + is.Key
	}
}

// intQuery reads an integer query parameter with a default.
func intQuery(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) // nolint:errcheck
}

// writeError writes a Jira-shaped error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"errorMessages": []string{msg}})
}

// logRequest logs method, path and query with the Authorization header
// redacted, plus the JSON body when enabled.
func logRequest(r *http.Request, logBody bool) {
	var bodyPreview string
	if logBody && r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		bodyPreview = " body=" + truncate(string(b), 2048)
		r.Body = io.NopCloser(strings.NewReader(string(b)))
	}
	log.Printf("REQ %s %s?%s auth=%v%s", r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("Authorization") != "", bodyPreview)
}

// sortedKeys returns the keys of m in stable order for logging.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncate returns at most n bytes of s.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
