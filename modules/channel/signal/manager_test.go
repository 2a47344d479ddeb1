package signal

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"testing"

	"github.com/flemzord/sigbridge/internal/security"
)

func TestCreateAccount(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.api.on(http.MethodPost, "/accounts/"+testBot, http.StatusCreated, "")
	ctx := context.Background()

	next, err := env.manager.CreateAccount(ctx, BotConfig{Verified: true}, testBot, " captcha-token ")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if next.Account != testBot || next.Verified {
		t.Errorf("snapshot = %+v, want unverified %s", next, testBot)
	}
	if got := env.load(t); got.Account != testBot || got.Verified {
		t.Errorf("stored = %+v", got)
	}
	if env.mem.Saves() != 1 {
		t.Errorf("saves = %d, want 1", env.mem.Saves())
	}

	calls := env.api.callsTo(http.MethodPost, "/accounts/"+testBot)
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if calls[0].Body["captcha"] != "captcha-token" || calls[0].Body["use_voice"] != false {
		t.Errorf("body = %v", calls[0].Body)
	}
	if !slices.Contains(env.events.types(), security.EventAccountCreated) {
		t.Errorf("audit events = %v, want account_created", env.events.types())
	}
}

func TestCreateAccount_Failure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.api.on(http.MethodPost, "/accounts/"+testBot, http.StatusBadRequest, `{"error":"captcha invalid"}`)

	cfg := BotConfig{}
	next, err := env.manager.CreateAccount(context.Background(), cfg, testBot, "bad")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Code != "errorcreatingaccount" || apiErr.Body != "captcha invalid" || apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("APIError = %+v", apiErr)
	}
	if got := Describe(err, "en"); got != "There was an error while creating a signal account: 'captcha invalid'" {
		t.Errorf("Describe = %q", got)
	}
	if next != cfg || env.mem.Saves() != 0 {
		t.Errorf("failed create changed state: %+v, saves %d", next, env.mem.Saves())
	}
}

func TestCreateAccount_InvalidNumber(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for _, n := range []string{"", "12345", "+0123"} {
		if _, err := env.manager.CreateAccount(context.Background(), BotConfig{}, n, "c"); !errors.Is(err, ErrInvalidNumber) {
			t.Errorf("CreateAccount(%q) = %v, want ErrInvalidNumber", n, err)
		}
	}
	if n := len(env.api.allCalls()); n != 0 {
		t.Errorf("API calls = %d, want 0", n)
	}
}

func TestVerifyAccount(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.api.on(http.MethodPatch, "/accounts/"+testBot+"/verify", http.StatusNoContent, "")
	cfg := BotConfig{Account: testBot}

	next, err := env.manager.VerifyAccount(context.Background(), cfg, "", "123-456")
	if err != nil {
		t.Fatalf("VerifyAccount: %v", err)
	}
	if !next.Verified || !env.load(t).Verified {
		t.Error("verified not set")
	}
	calls := env.api.callsTo(http.MethodPatch, "/accounts/"+testBot+"/verify")
	if len(calls) != 1 || calls[0].Body["token"] != "123-456" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestVerifyAccount_Failure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.api.on(http.MethodPatch, "/accounts/"+testBot+"/verify", http.StatusBadRequest, `{"error":"bad token"}`)
	cfg := BotConfig{Account: testBot}

	next, err := env.manager.VerifyAccount(context.Background(), cfg, testBot, "000")
	if MessageKey(err) != "errorverifingaccount" {
		t.Errorf("error = %v, want errorverifingaccount", err)
	}
	if next.Verified || env.mem.Saves() != 0 {
		t.Error("failed verification changed state")
	}
}

func TestIsAccountVerified(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"verified", 200, listing(testBot + ": true"), true},
		{"unverified", 200, listing(testBot + ": false"), false},
		{"escaped newline", 200, listing("+111: false\\n " + testBot + " : true "), true},
		{"real newline", 200, listing("+111: false\n" + testBot + ":true"), true},
		{"first row wins", 200, listing(testBot + ":false\n" + testBot + ":true"), false},
		{"not listed", 200, listing("+111: true"), false},
		{"no colon", 200, listing(testBot), false},
		{"not json", 200, "oops", false},
		{"plain text", 200, testBot + ":true\n", true},
		{"plain text unverified", 200, testBot + ":false\n", false},
		{"error status", 500, listing(testBot + ": true"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			env.api.on(http.MethodGet, "/accounts/"+testBot, tt.status, tt.body)

			got, next, err := env.manager.IsAccountVerified(context.Background(), BotConfig{Account: testBot, Verified: !tt.want}, "")
			if err != nil {
				t.Fatalf("IsAccountVerified: %v", err)
			}
			if got != tt.want || next.Verified != tt.want {
				t.Errorf("verified = %v (snapshot %v), want %v", got, next.Verified, tt.want)
			}
			if stored := env.load(t).Verified; stored != tt.want {
				t.Errorf("stored verified = %v, want %v", stored, tt.want)
			}
		})
	}
}

func TestIsAccountVerified_OtherNumber(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.api.on(http.MethodGet, "/accounts/"+testUser, http.StatusOK, listing(testUser+": true"))
	cfg := BotConfig{Account: testBot}

	verified, next, err := env.manager.IsAccountVerified(context.Background(), cfg, testUser)
	if !errors.Is(err, ErrAccountMismatch) || !IsValidation(err) {
		t.Fatalf("error = %v, want ErrAccountMismatch", err)
	}
	if verified || next != cfg {
		t.Errorf("verified = %v, snapshot = %+v", verified, next)
	}
	if len(env.api.allCalls()) != 0 || env.mem.Saves() != 0 {
		t.Error("mismatched number touched API or store")
	}
}

func TestIsAccountVerified_NotCached(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.api.on(http.MethodGet, "/accounts/"+testBot, 200, listing(testBot+": true"))
	ctx := context.Background()
	cfg := BotConfig{Account: testBot}

	for range 2 {
		if _, _, err := env.manager.IsAccountVerified(ctx, cfg, ""); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(env.api.callsTo(http.MethodGet, "/accounts/"+testBot)); n != 2 {
		t.Errorf("GET calls = %d, want 2", n)
	}
	if env.mem.Saves() != 2 {
		t.Errorf("saves = %d, want 2", env.mem.Saves())
	}
}

func TestUpdateAccountInfo(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.api.on(http.MethodPatch, "/accounts/"+testBot, http.StatusNoContent, "")
	name := "siteBot"

	if err := env.manager.UpdateAccountInfo(context.Background(), BotConfig{Account: testBot}, &name, nil); err != nil {
		t.Fatalf("UpdateAccountInfo: %v", err)
	}
	calls := env.api.callsTo(http.MethodPatch, "/accounts/"+testBot)
	if len(calls) != 1 {
		t.Fatalf("calls = %d", len(calls))
	}
	body := calls[0].Body
	if body["name"] != "siteBot" {
		t.Errorf("name = %v", body["name"])
	}
	if about, ok := body["about"]; !ok || about != nil {
		t.Errorf("about = %v (present %v), want explicit null", about, ok)
	}

	if err := env.manager.UpdateAccountInfo(context.Background(), BotConfig{}, &name, nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("without account: %v, want ErrNotConfigured", err)
	}
}

func TestWebhookLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	path := "/accounts/" + testBot + "/webhook"
	env.api.on(http.MethodPost, path, http.StatusCreated, "")
	env.api.on(http.MethodDelete, path, http.StatusNoContent, "")
	ctx := context.Background()

	cfg, err := env.manager.CreateWebhook(ctx, BotConfig{Account: testBot}, "https://example.com/hook")
	if err != nil {
		t.Fatalf("CreateWebhook: %v", err)
	}
	if cfg.Webhook != "https://example.com/hook" || env.load(t).Webhook != cfg.Webhook {
		t.Errorf("webhook not stored: %+v", cfg)
	}
	if calls := env.api.callsTo(http.MethodPost, path); calls[0].Body["webhook"] != "https://example.com/hook" {
		t.Errorf("body = %v", calls[0].Body)
	}

	cfg, err = env.manager.DeleteWebhook(ctx, cfg)
	if err != nil {
		t.Fatalf("DeleteWebhook: %v", err)
	}
	if cfg.Webhook != "" || env.load(t).Webhook != "" {
		t.Errorf("webhook not cleared: %+v", cfg)
	}
}

func TestCreateWebhook_Failure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.api.on(http.MethodPost, "/accounts/"+testBot+"/webhook", http.StatusInternalServerError, "")

	cfg := BotConfig{Account: testBot, Webhook: "https://old"}
	next, err := env.manager.CreateWebhook(context.Background(), cfg, "https://new")
	if MessageKey(err) != "errorcreatingwebhook" {
		t.Errorf("error = %v", err)
	}
	if next.Webhook != "https://old" {
		t.Errorf("webhook = %q, want unchanged", next.Webhook)
	}
}

func TestDeleteAccount(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.api.on(http.MethodDelete, "/accounts/"+testBot+"/webhook", http.StatusInternalServerError, "")
	env.api.on(http.MethodDelete, "/accounts/"+testBot, http.StatusNoContent, "")
	env.seed(t, BotConfig{Account: testBot, Verified: true, Webhook: "https://hook"})
	before := env.mem.Saves()

	next, err := env.manager.DeleteAccount(context.Background(), env.load(t), "")
	if err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if next.Account != "" || next.Verified || next.Webhook != "" {
		t.Errorf("snapshot = %+v, want cleared", next)
	}
	if env.mem.Saves()-before != 1 {
		t.Errorf("saves = %d, want 1", env.mem.Saves()-before)
	}

	calls := env.api.allCalls()
	if len(calls) != 2 || calls[0].Path != "/accounts/"+testBot+"/webhook" || calls[1].Path != "/accounts/"+testBot {
		t.Errorf("calls = %+v, want webhook delete then account delete", calls)
	}
	if !slices.Contains(env.events.types(), security.EventAccountDeleted) {
		t.Errorf("audit events = %v", env.events.types())
	}
}

func TestDeleteAccount_FailureKeepsState(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.api.on(http.MethodDelete, "/accounts/"+testBot, http.StatusBadGateway, "")

	cfg := BotConfig{Account: testBot}
	next, err := env.manager.DeleteAccount(context.Background(), cfg, testBot)
	if MessageKey(err) != "errordeletingaccount" {
		t.Errorf("error = %v", err)
	}
	if next != cfg || env.mem.Saves() != 0 {
		t.Errorf("failed delete changed state: %+v", next)
	}
}

func TestCheckConsent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.api.on(http.MethodPost, "/messages/consent/"+testBot, http.StatusOK, "")
	actor := Actor{UserID: 7, FirstName: "Maria", Lang: "de"}

	if err := env.manager.CheckConsent(context.Background(), BotConfig{Account: testBot}, actor, testUser); err != nil {
		t.Fatalf("CheckConsent: %v", err)
	}
	body := env.api.callsTo(http.MethodPost, "/messages/consent/"+testBot)[0].Body
	if body["recipient"] != testUser || body["caseSensitive"] != false {
		t.Errorf("body = %v", body)
	}
	if body["consentWord"] != "Einverstanden" {
		t.Errorf("consentWord = %v, want German", body["consentWord"])
	}
	msg, _ := body["consentMessage"].(string)
	if want := T("de", "consentmessage", map[string]string{"name": "Maria", "consentword": "Einverstanden"}); msg != want {
		t.Errorf("consentMessage = %q, want %q", msg, want)
	}
}

func TestCheckConsent_Denied(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.api.on(http.MethodPost, "/messages/consent/"+testBot, http.StatusBadRequest, `{"body":"timeout"}`)

	err := env.manager.CheckConsent(context.Background(), BotConfig{Account: testBot}, Actor{UserID: 1}, testUser)
	if got := Describe(err, "en"); got != "Consent denied.: 'timeout'" {
		t.Errorf("Describe = %q", got)
	}
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	path := "/messages/" + testBot
	tests := []struct {
		name    string
		req     SendRequest
		link    string
		wantErr error
		want    map[string]any
	}{
		{
			name: "text to user",
			req:  SendRequest{Message: "hello", UserID: 5},
			link: testUser,
			want: map[string]any{"message": "hello", "recipient": testUser},
		},
		{
			name: "explicit recipient",
			req:  SendRequest{Message: "hi", Params: map[string]any{"recipient": "+111"}},
			want: map[string]any{"message": "hi", "recipient": "+111"},
		},
		{
			name: "linked user wins over params",
			req:  SendRequest{Message: "hi", UserID: 5, Params: map[string]any{"recipient": "+111"}},
			link: testUser,
			want: map[string]any{"message": "hi", "recipient": testUser},
		},
		{
			name: "fields merged under params",
			req: SendRequest{
				Fields: map[string]any{"message": "structured", "text_mode": "normal"},
				Params: map[string]any{"recipient": "+111", "text_mode": "styled"},
			},
			want: map[string]any{"message": "structured", "recipient": "+111", "text_mode": "styled"},
		},
		{
			name:    "fields without message",
			req:     SendRequest{Fields: map[string]any{"x": 1}, Params: map[string]any{"recipient": "+111"}},
			wantErr: ErrMissingMessage,
		},
		{
			name:    "empty message",
			req:     SendRequest{Params: map[string]any{"recipient": "+111"}},
			wantErr: ErrMissingMessage,
		},
		{
			name:    "unlinked user",
			req:     SendRequest{Message: "hi", UserID: 9},
			wantErr: ErrMissingRecipient,
		},
		{
			name:    "no recipient",
			req:     SendRequest{Message: "hi"},
			wantErr: ErrMissingRecipient,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			env.api.on(http.MethodPost, path, http.StatusCreated, `{"timestamp":"1"}`)
			if tt.link != "" {
				if err := env.mem.SetPreference(context.Background(), tt.req.UserID, PrefChatID, tt.link); err != nil {
					t.Fatal(err)
				}
			}

			ok, err := env.manager.SendMessage(context.Background(), BotConfig{Account: testBot}, tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || !IsUsage(err) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				if len(env.api.allCalls()) != 0 {
					t.Error("API called for invalid request")
				}
				return
			}
			if err != nil || !ok {
				t.Fatalf("SendMessage = %v, %v", ok, err)
			}
			body := env.api.callsTo(http.MethodPost, path)[0].Body
			for k, v := range tt.want {
				if body[k] != v {
					t.Errorf("body[%q] = %v, want %v", k, body[k], v)
				}
			}
			if len(body) != len(tt.want) {
				t.Errorf("body = %v, want %v", body, tt.want)
			}
		})
	}
}

func TestSendMessage_NotConfiguredAndRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.api.on(http.MethodPost, "/messages/"+testBot, http.StatusBadRequest, "")
	ctx := context.Background()
	req := SendRequest{Message: "hi", Params: map[string]any{"recipient": testUser}}

	if _, err := env.manager.SendMessage(ctx, BotConfig{}, req); !errors.Is(err, ErrNotConfigured) || !IsConfiguration(err) {
		t.Errorf("unconfigured: %v, want ErrNotConfigured", err)
	}

	ok, err := env.manager.SendMessage(ctx, BotConfig{Account: testBot}, req)
	if err != nil || ok {
		t.Errorf("rejected send = %v, %v, want false, nil", ok, err)
	}
}

func TestUserLinkage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	cfg := BotConfig{Account: testBot}

	if set, _ := env.manager.IsUserAccountSet(ctx, 3); set {
		t.Fatal("fresh user linked")
	}
	if err := env.manager.SetUserAccount(ctx, BotConfig{}, testUser, 3); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("SetUserAccount without bot = %v, want ErrNotConfigured", err)
	}
	if err := env.manager.SetUserAccount(ctx, cfg, testUser, 3); err != nil {
		t.Fatalf("SetUserAccount: %v", err)
	}
	// Links are not unique across users.
	if err := env.manager.SetUserAccount(ctx, cfg, testUser, 4); err != nil {
		t.Fatalf("SetUserAccount second user: %v", err)
	}
	if got, _ := env.manager.UserAccount(ctx, 3); got != testUser {
		t.Errorf("UserAccount = %q, want %q", got, testUser)
	}

	if err := env.manager.RemoveUserAccount(ctx, 3, Actor{UserID: 4}); !errors.Is(err, ErrForbidden) || !IsAuthorization(err) {
		t.Errorf("foreign removal = %v, want ErrForbidden", err)
	}
	if err := env.manager.RemoveUserAccount(ctx, 3, Actor{UserID: 99, SiteAdmin: true}); err != nil {
		t.Errorf("admin removal: %v", err)
	}
	if err := env.manager.RemoveUserAccount(ctx, 0, Actor{UserID: 4}); err != nil {
		t.Errorf("self removal: %v", err)
	}
	for _, id := range []int64{3, 4} {
		if set, _ := env.manager.IsUserAccountSet(ctx, id); set {
			t.Errorf("user %d still linked", id)
		}
	}

	want := []security.EventType{security.EventLinkSet, security.EventLinkSet, security.EventLinkRemoved, security.EventLinkRemoved}
	if got := env.events.types(); !slices.Equal(got, want) {
		t.Errorf("audit events = %v, want %v", got, want)
	}
}

func TestConnectUserAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := BotConfig{Account: testBot}
	self := Actor{UserID: 3, FirstName: "Ana"}

	t.Run("links after consent", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.api.on(http.MethodPost, "/messages/consent/"+testBot, http.StatusOK, "")

		if err := env.manager.ConnectUserAccount(ctx, cfg, self, 0, " "+testUser+" "); err != nil {
			t.Fatalf("ConnectUserAccount: %v", err)
		}
		if got, _ := env.manager.UserAccount(ctx, 3); got != testUser {
			t.Errorf("link = %q", got)
		}
	})

	t.Run("consent denied leaves user unlinked", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.api.on(http.MethodPost, "/messages/consent/"+testBot, http.StatusForbidden, "")

		if err := env.manager.ConnectUserAccount(ctx, cfg, self, 3, testUser); MessageKey(err) != "consentdenied" {
			t.Errorf("error = %v, want consentdenied", err)
		}
		if set, _ := env.manager.IsUserAccountSet(ctx, 3); set {
			t.Error("user linked despite denied consent")
		}
	})

	t.Run("rejections", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		if err := env.manager.ConnectUserAccount(ctx, cfg, self, 0, ""); !errors.Is(err, ErrInvalidNumber) {
			t.Errorf("empty number = %v", err)
		}
		if err := env.manager.ConnectUserAccount(ctx, cfg, self, 0, "017298765432"); !errors.Is(err, ErrInvalidNumber) {
			t.Errorf("national number = %v", err)
		}
		if err := env.manager.ConnectUserAccount(ctx, cfg, self, 8, testUser); !errors.Is(err, ErrForbidden) {
			t.Errorf("other user = %v", err)
		}
		if err := env.manager.ConnectUserAccount(ctx, BotConfig{}, self, 0, testUser); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("no bot = %v", err)
		}
		if n := len(env.api.allCalls()); n != 0 {
			t.Errorf("API calls = %d, want 0", n)
		}
	})
}
