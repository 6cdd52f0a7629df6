package models

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEther(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10", "10000000000000000000"},
		{"0.25", "250000000000000000"},
		{".5", "500000000000000000"},
		{"0", "0"},
		{"0.000000000000000001", "1"},
		{"-2", "-2000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEther(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseEtherRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "abc", "1.2.3", "1e18", ".", "0.0000000000000000001"} {
		_, err := ParseEther(in)
		assert.Error(t, err, in)
	}
}

func TestFormatEther(t *testing.T) {
	assert.Equal(t, "10", FormatEther(big.NewInt(0).Mul(big.NewInt(10), weiPerEther)))
	assert.Equal(t, "0.25", FormatEther(big.NewInt(250000000000000000)))
	assert.Equal(t, "0.000000000000000001", FormatEther(big.NewInt(1)))
	assert.Equal(t, "0", FormatEther(nil))
	assert.Equal(t, "-1.5", FormatEther(big.NewInt(-1500000000000000000)))
}

func TestCreateEventCommandValidate(t *testing.T) {
	valid := CreateEventCommand{
		Name:               "Gala",
		TicketPrice:        big.NewInt(10),
		SeatingCapacity:    100,
		CancellationCharge: big.NewInt(2),
		Token:              common.HexToAddress("0x00000000000000000000000000000000000000aa"),
	}
	require.NoError(t, valid.Validate())

	free := valid
	free.TicketPrice = big.NewInt(0)
	free.CancellationCharge = big.NewInt(0)
	assert.NoError(t, free.Validate())

	cases := map[string]func(c *CreateEventCommand){
		"empty name":      func(c *CreateEventCommand) { c.Name = "  " },
		"negative price":  func(c *CreateEventCommand) { c.TicketPrice = big.NewInt(-1) },
		"missing price":   func(c *CreateEventCommand) { c.TicketPrice = nil },
		"zero capacity":   func(c *CreateEventCommand) { c.SeatingCapacity = 0 },
		"negative charge": func(c *CreateEventCommand) { c.CancellationCharge = big.NewInt(-5) },
		"zero token":      func(c *CreateEventCommand) { c.Token = common.Address{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cmd := valid
			mutate(&cmd)
			err := cmd.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestPurchaseCommandValidate(t *testing.T) {
	assert.ErrorIs(t, PurchaseCommand{}.Validate(), ErrValidation)
	assert.NoError(t, PurchaseCommand{Event: common.HexToAddress("0x01")}.Validate())
}

func TestErrorIsMatchesKindOnly(t *testing.T) {
	err := NewError(KindNotFound, "fetch ticket", "index 4 out of range", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrConnectivity)
	assert.Equal(t, "fetch ticket: index 4 out of range", err.Error())
}
