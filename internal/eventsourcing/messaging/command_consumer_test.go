package messaging_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/tradecore/internal/eventsourcing/messaging"
)

type transferCommand struct {
	AccountID string `json:"account_id"`
	Amount    int    `json:"amount"`
}

func (c transferCommand) CommandType() string { return "Transfer" }
func (c transferCommand) TargetID() string    { return c.AccountID }
func (c transferCommand) Validate() error     { return nil }

func TestDecodeAs(t *testing.T) {
	cmd, err := messaging.DecodeAs[transferCommand](json.RawMessage(`{"account_id":"acc-1","amount":42}`))
	require.NoError(t, err)

	decoded, ok := cmd.(transferCommand)
	require.True(t, ok)
	assert.Equal(t, "acc-1", decoded.TargetID())
	assert.Equal(t, 42, decoded.Amount)
}

func TestDecodeAsRejectsMalformedPayload(t *testing.T) {
	_, err := messaging.DecodeAs[transferCommand](json.RawMessage(`{"amount":"not a number"}`))
	require.Error(t, err)
}
