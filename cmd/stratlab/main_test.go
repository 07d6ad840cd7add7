package main

import (
	"flag"
	"testing"
)

func TestSplitList(t *testing.T) {
	got := splitList(" ma, ,rsi,,bb ")
	if len(got) != 3 || got[0] != "ma" || got[2] != "bb" {
		t.Errorf("splitList = %q", got)
	}
	if splitList("") != nil {
		t.Error("Empty input should give no items")
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs("3, 12")
	if err != nil || len(ids) != 2 || ids[1] != 12 {
		t.Errorf("parseIDs = %v, %v", ids, err)
	}
	if _, err := parseIDs("3,x"); err == nil {
		t.Error("Expected error for non-numeric id")
	}
	if _, err := parseID([]string{"1", "2"}, "strategy"); err == nil {
		t.Error("Expected error for two ids")
	}
}

func TestTimingFlagsDescribe(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	buy := registerTiming(fs, "buy")
	sell := registerTiming(fs, "sell")

	err := fs.Parse([]string{
		"--buy-when", "RSIが30以下",
		"--buy-order", "market", "--buy-price", "close",
		"--sell-when", "RSIが70以上",
		"--sell-order", "market", "--sell-price", "open", "--sell-day", "next",
	})
	if err != nil {
		t.Fatal(err)
	}

	text, err := describe(buy, sell)
	if err != nil {
		t.Fatalf("describe failed: %v", err)
	}
	want := "RSIが30以下で終値で成行買い、RSIが70以上で始値で成行売り（翌日）"
	if text != want {
		t.Errorf("describe = %q, want %q", text, want)
	}
}

func TestTimingFlagsRejectUnknownAlias(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	buy := registerTiming(fs, "buy")
	sell := registerTiming(fs, "sell")
	fs.Parse([]string{"--buy-when", "x", "--buy-order", "stop"})

	if _, err := describe(buy, sell); err == nil {
		t.Error("Expected error for unknown order type")
	}
}

func TestSaveSymbolFor(t *testing.T) {
	tests := []struct {
		saveSymbol, symbol, want string
	}{
		{"", "7203", "7203"},
		{"9984", "7203", "9984"},
		{" ", " 6758 ", "6758"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := saveSymbolFor(tt.saveSymbol, tt.symbol); got != tt.want {
			t.Errorf("saveSymbolFor(%q, %q) = %q, want %q", tt.saveSymbol, tt.symbol, got, tt.want)
		}
	}
}
