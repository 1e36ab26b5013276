package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportConfig_SymbolList(t *testing.T) {
	tests := []struct {
		name    string
		symbols string
		expect  []string
	}{
		{
			name:    "空配置用默认币种",
			symbols: "",
			expect:  []string{"BTC", "ETH", "ADA"},
		},
		{
			name:    "逗号分隔并规范化大写",
			symbols: "btc, eth ,sol",
			expect:  []string{"BTC", "ETH", "SOL"},
		},
		{
			name:    "只有分隔符时回退默认",
			symbols: " , ,",
			expect:  []string{"BTC", "ETH", "ADA"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ReportConfig{Symbols: tt.symbols}
			assert.Equal(t, tt.expect, cfg.SymbolList())
		})
	}
}
