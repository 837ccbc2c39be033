package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/stellarlinkco/dayflow/internal/task"
)

// DB is the sqlite-backed task/owner store. Writes are serialized with a
// mutex; concurrent read-modify-write of the same record is the caller's
// problem (one batch at a time, never overlapping).
type DB struct {
	db     *sql.DB
	mu     sync.Mutex
	onDone CompletionHook
}

func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &DB{db: db}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *DB) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SetCompletionHook registers the hook called when a saved task's IsDone
// flag flips false to true. Must be set before the store is shared.
func (s *DB) SetCompletionHook(hook CompletionHook) {
	s.onDone = hook
}

func (s *DB) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			owner_kind TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			created TEXT NOT NULL,
			due TEXT,
			estimate INTEGER NOT NULL DEFAULT 0,
			priority TEXT NOT NULL DEFAULT '',
			difficulty TEXT NOT NULL DEFAULT '',
			urgent INTEGER NOT NULL DEFAULT 0,
			is_done INTEGER NOT NULL DEFAULT 0,
			is_started INTEGER NOT NULL DEFAULT 0,
			is_today INTEGER NOT NULL DEFAULT 0,
			started TEXT,
			completed TEXT,
			time_spent INTEGER NOT NULL DEFAULT 0,
			repeatable INTEGER NOT NULL DEFAULT 0,
			rule TEXT,
			streak INTEGER NOT NULL DEFAULT 0,
			best_streak INTEGER NOT NULL DEFAULT 0,
			history TEXT NOT NULL DEFAULT '[]',
			before_ids TEXT NOT NULL DEFAULT '[]',
			after_ids TEXT NOT NULL DEFAULT '[]',
			list_ids TEXT NOT NULL DEFAULT '[]',
			steps TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_kind, owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			score REAL NOT NULL DEFAULT 0,
			coins REAL NOT NULL DEFAULT 0,
			chat_id TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS groups (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			owner_id TEXT NOT NULL,
			member_ids TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS lists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			owner_kind TEXT NOT NULL,
			owner_id TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_lists_today
			ON lists(owner_kind, owner_id) WHERE name = 'today'`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

const taskColumns = `id, title, owner_kind, owner_id, created, due, estimate,
	priority, difficulty, urgent, is_done, is_started, is_today,
	started, completed, time_spent, repeatable, rule, streak, best_streak,
	history, before_ids, after_ids, list_ids, steps`

// FindTasks returns all tasks matching the filter.
func (s *DB) FindTasks(ctx context.Context, f TaskFilter) ([]*task.Task, error) {
	var conds []string
	var args []any

	if len(f.Owners) > 0 {
		var ors []string
		for _, o := range f.Owners {
			ors = append(ors, "(owner_kind = ? AND owner_id = ?)")
			args = append(args, string(o.Kind), o.ID)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	if f.Repeatable != nil {
		conds = append(conds, "repeatable = ?")
		args = append(args, boolInt(*f.Repeatable))
	}
	if f.Done != nil {
		conds = append(conds, "is_done = ?")
		args = append(args, boolInt(*f.Done))
	}
	if f.DueFrom != nil {
		conds = append(conds, "due IS NOT NULL AND due >= ?")
		args = append(args, encodeTime(*f.DueFrom))
	}
	if f.DueTo != nil {
		conds = append(conds, "due IS NOT NULL AND due < ?")
		args = append(args, encodeTime(*f.DueTo))
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if f.OrderByDue {
		query += " ORDER BY due ASC"
	} else {
		query += " ORDER BY created ASC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer rows.Close()

	var out []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

func (s *DB) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// SaveTask upserts the task. If an existing row's IsDone was false and
// the saved task's IsDone is true, the completion hook fires after the
// write succeeds.
func (s *DB) SaveTask(ctx context.Context, t *task.Task) error {
	rule, err := encodeJSON(t.Rule)
	if err != nil {
		return fmt.Errorf("encode rule: %w", err)
	}
	history, err := encodeJSONSlice(t.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	before, err := encodeJSONSlice(t.Before)
	if err != nil {
		return fmt.Errorf("encode before links: %w", err)
	}
	after, err := encodeJSONSlice(t.After)
	if err != nil {
		return fmt.Errorf("encode after links: %w", err)
	}
	lists, err := encodeJSONSlice(t.Lists)
	if err != nil {
		return fmt.Errorf("encode lists: %w", err)
	}
	steps, err := encodeJSONSlice(t.Steps)
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}

	s.mu.Lock()

	var wasDone sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		"SELECT is_done FROM tasks WHERE id = ?", t.ID).Scan(&wasDone)
	if err != nil && err != sql.ErrNoRows {
		s.mu.Unlock()
		return fmt.Errorf("load previous task state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			owner_kind = excluded.owner_kind,
			owner_id = excluded.owner_id,
			created = excluded.created,
			due = excluded.due,
			estimate = excluded.estimate,
			priority = excluded.priority,
			difficulty = excluded.difficulty,
			urgent = excluded.urgent,
			is_done = excluded.is_done,
			is_started = excluded.is_started,
			is_today = excluded.is_today,
			started = excluded.started,
			completed = excluded.completed,
			time_spent = excluded.time_spent,
			repeatable = excluded.repeatable,
			rule = excluded.rule,
			streak = excluded.streak,
			best_streak = excluded.best_streak,
			history = excluded.history,
			before_ids = excluded.before_ids,
			after_ids = excluded.after_ids,
			list_ids = excluded.list_ids,
			steps = excluded.steps`,
		t.ID, t.Title, string(t.Owner.Kind), t.Owner.ID, encodeTime(t.Created),
		encodeTimePtr(t.Due), int64(t.Estimate),
		string(t.Priority), string(t.Difficulty), boolInt(t.Urgent),
		boolInt(t.IsDone), boolInt(t.IsStarted), boolInt(t.IsToday),
		encodeTimePtr(t.Started), encodeTimePtr(t.Completed), int64(t.TimeSpent),
		boolInt(t.Repeatable), rule, t.Streak, t.BestStreak,
		history, before, after, lists, steps)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}

	hook := s.onDone
	s.mu.Unlock()

	if hook != nil && t.IsDone && (!wasDone.Valid || wasDone.Int64 == 0) {
		hook(ctx, t)
	}
	return nil
}

func (s *DB) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *DB) AllUsers(ctx context.Context) ([]*task.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, score, coins, chat_id FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*task.User
	for rows.Next() {
		var u task.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Score, &u.Coins, &u.ChatID); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

func (s *DB) GetUser(ctx context.Context, id string) (*task.User, error) {
	var u task.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, score, coins, chat_id FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Name, &u.Score, &u.Coins, &u.ChatID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

func (s *DB) SaveUser(ctx context.Context, u *task.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, score, coins, chat_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			score = excluded.score,
			coins = excluded.coins,
			chat_id = excluded.chat_id`,
		u.ID, u.Name, u.Score, u.Coins, u.ChatID)
	if err != nil {
		return fmt.Errorf("save user %s: %w", u.ID, err)
	}
	return nil
}

func (s *DB) GetGroup(ctx context.Context, id string) (*task.Group, error) {
	var g task.Group
	var members string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, owner_id, member_ids FROM groups WHERE id = ?", id).
		Scan(&g.ID, &g.Name, &g.OwnerID, &members)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(members), &g.Members); err != nil {
		return nil, fmt.Errorf("decode group members: %w", err)
	}
	return &g, nil
}

func (s *DB) SaveGroup(ctx context.Context, g *task.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, err := encodeJSONSlice(g.Members)
	if err != nil {
		return fmt.Errorf("encode group members: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO groups (id, name, owner_id, member_ids)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			owner_id = excluded.owner_id,
			member_ids = excluded.member_ids`,
		g.ID, g.Name, g.OwnerID, members)
	if err != nil {
		return fmt.Errorf("save group %s: %w", g.ID, err)
	}
	return nil
}

// GroupsForUser returns every group the user is a member of.
func (s *DB) GroupsForUser(ctx context.Context, userID string) ([]*task.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, owner_id, member_ids FROM groups ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []*task.Group
	for rows.Next() {
		var g task.Group
		var members string
		if err := rows.Scan(&g.ID, &g.Name, &g.OwnerID, &members); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		if err := json.Unmarshal([]byte(members), &g.Members); err != nil {
			return nil, fmt.Errorf("decode group members: %w", err)
		}
		for _, m := range g.Members {
			if m == userID {
				out = append(out, &g)
				break
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return out, nil
}

func (s *DB) GetList(ctx context.Context, id string) (*task.List, error) {
	var l task.List
	var kind string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, owner_kind, owner_id FROM lists WHERE id = ?", id).
		Scan(&l.ID, &l.Name, &kind, &l.Owner.ID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("list %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get list %s: %w", id, err)
	}
	l.Owner.Kind = task.OwnerKind(kind)
	return &l, nil
}

// TodayList returns the owner's distinguished "today" list, creating it
// on first use. Every owner has exactly one.
func (s *DB) TodayList(ctx context.Context, owner task.Owner) (*task.List, error) {
	var l task.List
	var kind string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_kind, owner_id FROM lists
		WHERE name = ? AND owner_kind = ? AND owner_id = ?`,
		task.TodayListName, string(owner.Kind), owner.ID).
		Scan(&l.ID, &l.Name, &kind, &l.Owner.ID)
	if err == sql.ErrNoRows {
		l = task.List{ID: newListID(), Name: task.TodayListName, Owner: owner}
		if err := s.SaveList(ctx, &l); err != nil {
			return nil, err
		}
		return &l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("today list for %s/%s: %w", owner.Kind, owner.ID, err)
	}
	l.Owner.Kind = task.OwnerKind(kind)
	return &l, nil
}

func (s *DB) SaveList(ctx context.Context, l *task.List) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lists (id, name, owner_kind, owner_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			owner_kind = excluded.owner_kind,
			owner_id = excluded.owner_id`,
		l.ID, l.Name, string(l.Owner.Kind), l.Owner.ID)
	if err != nil {
		return fmt.Errorf("save list %s: %w", l.ID, err)
	}
	return nil
}
