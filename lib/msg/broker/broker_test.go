package broker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewUnknown(t *testing.T) {
	mb, err := New("kafka", "localhost:9092")
	require.Error(t, err)
	require.Nil(t, mb)
}
