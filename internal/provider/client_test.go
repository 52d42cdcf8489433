package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSyncTransactionsDecodesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/sync" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["access_token"] != "tok" {
			t.Errorf("access_token = %v", body["access_token"])
		}
		if body["cursor"] != "cur-1" {
			t.Errorf("cursor = %v", body["cursor"])
		}
		json.NewEncoder(w).Encode(SyncPage{
			Added: []Transaction{{
				TransactionID: "ptx-1",
				AccountID:     "pacct-1",
				Amount:        15.32,
				Date:          "2026-08-01",
				Name:          "UBER *TRIP",
				MerchantName:  "Uber",
				Category:      Category{Primary: "TRANSPORTATION"},
			}},
			Removed:    []RemovedTransaction{{TransactionID: "ptx-0"}},
			HasMore:    true,
			NextCursor: "cur-2",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "id", "secret")
	page, err := client.SyncTransactions(context.Background(), "tok", "cur-1")
	if err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}
	if len(page.Added) != 1 || page.Added[0].TransactionID != "ptx-1" {
		t.Fatalf("added = %+v", page.Added)
	}
	if len(page.Removed) != 1 || page.Removed[0].TransactionID != "ptx-0" {
		t.Fatalf("removed = %+v", page.Removed)
	}
	if !page.HasMore || page.NextCursor != "cur-2" {
		t.Fatalf("pagination = (%v, %q)", page.HasMore, page.NextCursor)
	}
}

func TestSyncTransactionsOmitsEmptyCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["cursor"]; ok {
			t.Error("first sync call must not send a cursor")
		}
		json.NewEncoder(w).Encode(SyncPage{NextCursor: "cur-1"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "id", "secret")
	if _, err := client.SyncTransactions(context.Background(), "tok", ""); err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}
}

func TestProviderErrorSurfacesCodeAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error_code":    "ITEM_LOGIN_REQUIRED",
			"error_message": "the login details of this item have changed",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "id", "secret")
	_, err := client.SyncTransactions(context.Background(), "tok", "")
	if err == nil {
		t.Fatal("expected error")
	}
	var provErr *Error
	if !errors.As(err, &provErr) {
		t.Fatalf("error type = %T", err)
	}
	if provErr.Code != "ITEM_LOGIN_REQUIRED" {
		t.Fatalf("code = %q", provErr.Code)
	}
	if provErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", provErr.StatusCode)
	}
}

func TestProviderErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "id", "secret")
	err := client.RemoveItem(context.Background(), "tok")
	var provErr *Error
	if !errors.As(err, &provErr) {
		t.Fatalf("error type = %T", err)
	}
	if provErr.Code != "UNKNOWN" {
		t.Fatalf("code = %q", provErr.Code)
	}
}
