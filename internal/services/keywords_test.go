package services

import "testing"

func TestKeywordCategoryTableOrder(t *testing.T) {
	// "ubereats" matches Food & Dining before Transportation's "uber" gets
	// a chance; the table order is part of the contract.
	got, ok := keywordCategory("UberEats", "", false)
	if !ok || got != "Food & Dining" {
		t.Errorf("UberEats resolved to %q, want Food & Dining", got)
	}

	got, ok = keywordCategory("Uber", "", false)
	if !ok || got != "Transportation" {
		t.Errorf("Uber resolved to %q, want Transportation", got)
	}
}

func TestKeywordCategoryMatchesDescription(t *testing.T) {
	got, ok := keywordCategory("", "monthly rent payment", false)
	if !ok || got != "Housing" {
		t.Errorf("got %q, want Housing", got)
	}
}

func TestKeywordCategoryIncomeOnlyOnInflow(t *testing.T) {
	if _, ok := keywordCategory("", "tax refund", false); ok {
		t.Error("income keywords must not match outflows")
	}
	got, ok := keywordCategory("", "tax refund", true)
	if !ok || got != "Income" {
		t.Errorf("got %q, want Income", got)
	}
}

func TestKeywordCategoryNoMatch(t *testing.T) {
	if got, ok := keywordCategory("ACME WIDGETS", "invoice 42", false); ok {
		t.Errorf("unexpected match %q", got)
	}
}
