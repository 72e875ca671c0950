package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/lifinance/solguard/internal/ir"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "solguard.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.CreateSchema(); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func sampleRun(id string, started time.Time) *ir.Run {
	return &ir.Run{
		ID:        id,
		StartedAt: started,
		Source:    "contracts/",
		IRVersion: ir.Version,
		Contracts: []ir.Contract{{Name: "Vault", Kind: ir.KindContract}},
		Findings: []ir.Finding{
			{
				ID: "low-level-call-0000aaaa", RuleID: "low-level-call",
				Contract: "Vault", Function: "sweep",
				Impact: "HIGH", Confidence: "MEDIUM",
				Message:  "Function sweep contains a low-level call: target.call(data) without explicit comment allowance",
				Evidence: "target.call(data)", File: "contracts/Vault.sol", Line: 42,
			},
			{
				ID: "style-0000bbbb", RuleID: "style",
				Contract: "Vault", Function: "sweep",
				Impact: "LOW", Confidence: "HIGH",
				Message: "stylistic nit", File: "contracts/Vault.sol", Line: 10,
			},
		},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	db := openTestDB(t)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := sampleRun("run-1", started)

	if err := db.SaveRun(run); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.LoadRun("run-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != "run-1" || got.Source != "contracts/" || got.IRVersion != ir.Version {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.Contracts) != 1 || got.Contracts[0].Name != "Vault" {
		t.Fatalf("contracts lost: %+v", got.Contracts)
	}
	if len(got.Findings) != 2 {
		t.Fatalf("findings lost: %d", len(got.Findings))
	}

	ok, err := db.HasRun("run-1")
	if err != nil || !ok {
		t.Fatalf("HasRun(run-1) = %v, %v", ok, err)
	}
	ok, err = db.HasRun("run-404")
	if err != nil || ok {
		t.Fatalf("HasRun(run-404) = %v, %v", ok, err)
	}
}

func TestSaveRun_UpsertReplacesFindings(t *testing.T) {
	db := openTestDB(t)
	run := sampleRun("run-1", time.Now().UTC())
	if err := db.SaveRun(run); err != nil {
		t.Fatal(err)
	}

	run.Findings = run.Findings[:1]
	if err := db.SaveRun(run); err != nil {
		t.Fatalf("resave: %v", err)
	}

	fs, err := db.ListFindings("run-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 1 {
		t.Fatalf("want 1 finding after resave, got %d", len(fs))
	}
}

func TestListRuns(t *testing.T) {
	db := openTestDB(t)
	older := sampleRun("run-old", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := sampleRun("run-new", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	for _, r := range []*ir.Run{older, newer} {
		if err := db.SaveRun(r); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := db.ListRuns(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(rows))
	}
	if rows[0].ID != "run-new" || rows[1].ID != "run-old" {
		t.Fatalf("runs not newest first: %s, %s", rows[0].ID, rows[1].ID)
	}
	if rows[0].Findings != 2 {
		t.Fatalf("finding count = %d", rows[0].Findings)
	}

	latest, err := db.LoadLatestRun()
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != "run-new" {
		t.Fatalf("latest = %s", latest.ID)
	}
}

func TestListFindings_ImpactFilter(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveRun(sampleRun("run-1", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}

	all, err := db.ListFindings("run-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("unfiltered = %d", len(all))
	}
	if all[0].Impact != "HIGH" {
		t.Fatalf("ordering: first impact = %s", all[0].Impact)
	}

	high, err := db.ListFindings("run-1", "HIGH")
	if err != nil {
		t.Fatal(err)
	}
	if len(high) != 1 || high[0].RuleID != "low-level-call" {
		t.Fatalf("HIGH filter: %+v", high)
	}
}

func TestWaiverLifecycle(t *testing.T) {
	db := openTestDB(t)
	expires := time.Now().UTC().Add(24 * time.Hour)

	id, err := db.CreateWaiver("low-level-call", "Vault", "sweep", "target.call", "audited call", "alice", expires)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == 0 {
		t.Fatal("zero waiver id")
	}

	active, err := db.ListWaivers(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Fatalf("active = %d", len(active))
	}
	w := active[0]
	if w.RuleID != "low-level-call" || w.Contract != "Vault" || w.Function != "sweep" || w.PatternSub != "target.call" {
		t.Fatalf("waiver round trip: %+v", w)
	}

	if err := db.RevokeWaiver(id, "bob"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	active, err = db.ListWaivers(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Fatalf("active after revoke = %d", len(active))
	}

	all, err := db.ListWaivers(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].RevokedAt == nil {
		t.Fatalf("revoked_at not recorded: %+v", all)
	}
}

func TestExpiredWaiversExcluded(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.CreateWaiver("low-level-call", "", "", "", "lapsed", "alice", time.Now().UTC().Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	active, err := db.ListWaivers(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Fatalf("expired waiver still active: %+v", active)
	}
}

func TestUsersAndSessions(t *testing.T) {
	db := openTestDB(t)

	uid, err := db.CreateUser("alice", "$2a$10$hashhashhash", "admin")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	u, ph, err := db.GetUserByUsername("alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.ID != uid || u.Role != "admin" || ph != "$2a$10$hashhashhash" {
		t.Fatalf("user round trip: %+v, %s", u, ph)
	}
	if _, err := db.CreateUser("alice", "x", "viewer"); err == nil {
		t.Fatal("duplicate username should fail")
	}

	if err := db.CreateSession(uid, "tok-1", time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	su, err := db.GetSession("tok-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if su.Username != "alice" {
		t.Fatalf("session user = %s", su.Username)
	}

	// expired tokens are invisible
	if err := db.CreateSession(uid, "tok-old", time.Now().UTC().Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetSession("tok-old"); err != sql.ErrNoRows {
		t.Fatalf("expired session: err = %v", err)
	}

	if err := db.DeleteSession("tok-1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := db.GetSession("tok-1"); err != sql.ErrNoRows {
		t.Fatalf("deleted session: err = %v", err)
	}
}

func TestAuditLog(t *testing.T) {
	db := openTestDB(t)
	if err := db.LogAudit("alice", "waiver.create", "waivers/1", map[string]any{"rule": "low-level-call"}); err != nil {
		t.Fatalf("audit: %v", err)
	}
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(1) FROM audit`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("audit rows = %d", n)
	}
}
