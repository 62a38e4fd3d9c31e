// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"passport-workers/internal/common/logger"
	"passport-workers/internal/models"
	"passport-workers/internal/scoring"

	apn "passport-workers/internal/workers/passport/augment-passport-narrative"
	cpe "passport-workers/internal/workers/passport/check-passport-entitlement"
	gcp "passport-workers/internal/workers/passport/generate-credit-passport"
	gph "passport-workers/internal/workers/passport/get-passport-history"
	ip "passport-workers/internal/workers/passport/index-passport"
	sp "passport-workers/internal/workers/passport/search-passports"
	spn "passport-workers/internal/workers/passport/send-passport-notification"
	spr "passport-workers/internal/workers/passport/store-passport-record"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// ==========================
// Fakes
// ==========================

type cannedAugmenter struct{}

func (cannedAugmenter) Augment(_ context.Context, base scoring.Narrative, in scoring.Inputs) (scoring.Narrative, error) {
	n := base
	n.Headline = in.BusinessIdentity.Name + " is bankable with support."
	return n, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingMailer) SendEmail(_ context.Context, to, subject, _, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, to+"|"+subject)
	return "ses-1", nil
}

// searchBackend is an in-memory stand-in for the passport index.
type searchBackend struct {
	mu   sync.Mutex
	docs map[string]json.RawMessage
}

func (b *searchBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "/_doc/"):
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		body, _ := io.ReadAll(r.Body)
		result := "created"
		if _, ok := b.docs[id]; ok {
			result = "updated"
		}
		b.docs[id] = body
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"_id": id, "_version": len(b.docs), "result": result})
	case strings.HasSuffix(r.URL.Path, "/_search"):
		hits := make([]map[string]interface{}, 0, len(b.docs))
		for id, doc := range b.docs {
			hits = append(hits, map[string]interface{}{"_id": id, "_source": doc})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"took": 1,
			"hits": map[string]interface{}{"total": map[string]interface{}{"value": len(hits)}, "hits": hits},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ==========================
// Passport Lifecycle
// ==========================

func TestPassportLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log := logger.NewTestLogger(t)
	const businessID = "biz-e2e"

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	backend := &searchBackend{docs: map[string]json.RawMessage{}}
	srv := httptest.NewServer(backend)
	defer srv.Close()
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}, DisableRetry: true})
	require.NoError(t, err)

	engine := scoring.NewEngine()
	profile := scoring.Inputs{BusinessIdentity: &scoring.BusinessIdentity{Name: "Mutale Grain Traders", Sector: "agriculture"}}

	// 1. Generate
	generated, err := gcp.NewHandler(&gcp.Config{Timeout: 5 * time.Second}, engine, log).
		Execute(ctx, &gcp.Input{BusinessID: businessID, Inputs: profile})
	require.NoError(t, err)
	assert.Equal(t, 59, generated.Passport.FundabilityScore)

	// 2. Augment
	augmented, err := apn.NewHandler(&apn.Config{Timeout: 5 * time.Second}, engine, cannedAugmenter{}, log).
		Execute(ctx, &apn.Input{BusinessID: businessID, Passport: generated.Passport, Inputs: profile})
	require.NoError(t, err)
	require.True(t, augmented.Augmented)
	assert.Equal(t, "Mutale Grain Traders is bankable with support.", augmented.Passport.Narrative.Headline)
	passport := augmented.Passport

	// 3. Entitlement
	mock.ExpectQuery("SELECT id, amount, currency FROM passport_payments").
		WithArgs(businessID, "generate").
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount", "currency"}).AddRow("pay-77", "150.00", "ZMW"))

	entitlement, err := cpe.NewHandler(&cpe.Config{Timeout: 5 * time.Second, CacheTTL: time.Minute, Prices: scoring.DefaultPricePoints}, db, rdb, log).
		Execute(ctx, &cpe.Input{BusinessID: businessID, Action: "generate"})
	require.NoError(t, err)
	require.True(t, entitlement.Entitled)
	assert.True(t, mr.Exists(models.EntitlementCacheKey(businessID, scoring.ActionGenerate)))

	// 4. Store
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO credit_passports").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE passport_payments SET consumed_at").
		WithArgs(sqlmock.AnyArg(), "pay-77", businessID, "generate").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM credit_passports").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM credit_passports`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO audit_log").WillReturnResult(sqlmock.NewResult(1, 1))

	stored, err := spr.NewHandler(&spr.Config{Timeout: 5 * time.Second, HistoryLimit: scoring.MaxHistory}, db, rdb, log).
		Execute(ctx, &spr.Input{BusinessID: businessID, PaymentID: entitlement.PaymentID, Action: "generate", Passport: passport})
	require.NoError(t, err)
	assert.True(t, stored.PaymentConsumed)
	assert.Equal(t, 1, stored.HistorySize)
	assert.False(t, mr.Exists(models.EntitlementCacheKey(businessID, scoring.ActionGenerate)))
	version, err := mr.Get(models.HistoryVersionKey(businessID))
	require.NoError(t, err)
	assert.Equal(t, "1", version)

	// 5. History
	raw, err := json.Marshal(passport)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT passport FROM credit_passports").
		WithArgs(businessID, scoring.MaxHistory).
		WillReturnRows(sqlmock.NewRows([]string{"passport"}).AddRow(raw))

	history := gph.NewHandler(&gph.Config{Timeout: 5 * time.Second, CacheTTL: time.Minute, HistoryLimit: scoring.MaxHistory}, db, rdb, log)
	first, err := history.Execute(ctx, &gph.Input{BusinessID: businessID})
	require.NoError(t, err)
	assert.Equal(t, gph.SourceDatabase, first.Source)
	require.Equal(t, 1, first.Count)
	assert.Equal(t, passport.Narrative.Headline, first.Passports[0].Narrative.Headline)
	assert.Nil(t, first.ScoreChange)

	second, err := history.Execute(ctx, &gph.Input{BusinessID: businessID})
	require.NoError(t, err)
	assert.Equal(t, gph.SourceCache, second.Source)

	// 6. Index and search
	indexed, err := ip.NewHandler(&ip.Config{Timeout: 5 * time.Second, Index: "credit-passports"}, es, log).
		Execute(ctx, &ip.Input{BusinessID: businessID, PassportID: stored.PassportID, Business: profile.BusinessIdentity, Passport: passport})
	require.NoError(t, err)
	assert.Equal(t, businessID, indexed.DocumentID)
	assert.Equal(t, "created", indexed.Result)

	found, err := sp.NewHandler(&sp.Config{Timeout: 5 * time.Second, Index: "credit-passports"}, es, log).
		Execute(ctx, &sp.Input{Sector: "agriculture"})
	require.NoError(t, err)
	require.Len(t, found.Passports, 1)
	assert.Equal(t, "Mutale Grain Traders", found.Passports[0].BusinessName)
	assert.Equal(t, 59, found.Passports[0].FundabilityScore)
	assert.Equal(t, stored.PassportID, found.Passports[0].PassportID)

	// 7. Notify
	mock.ExpectQuery("SELECT name, owner_email, owner_phone FROM businesses").
		WithArgs(businessID).
		WillReturnRows(sqlmock.NewRows([]string{"name", "owner_email", "owner_phone"}).
			AddRow("Mutale Grain Traders", "owner@mutale.co.zm", "+260971000000"))

	mailer := &recordingMailer{}
	notified, err := spn.NewHandler(&spn.Config{EmailEnabled: true, PortalURL: "https://portal.example.zm", Timeout: 5 * time.Second}, db, mailer, nil, log).
		Execute(ctx, &spn.Input{BusinessID: businessID, PassportID: stored.PassportID, Passport: passport})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, notified.Status)
	require.Len(t, mailer.sent, 1)
	assert.True(t, strings.HasPrefix(mailer.sent[0], "owner@mutale.co.zm|"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
