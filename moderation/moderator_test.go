package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Censor_Replaces_Forbidden_Words(t *testing.T) {
	req := require.New(t)

	moderator, err := NewModerator([]string{"badword"}, '*')
	req.NoError(err)

	req.Equal("this is a *******", moderator.Censor("this is a badword"))
	req.Equal("clean message", moderator.Censor("clean message"))
}

func Test_Censor_Catches_Leet_Speak(t *testing.T) {
	req := require.New(t)

	moderator, err := NewModerator([]string{"badword"}, '*')
	req.NoError(err)

	censored := moderator.Censor("b4dw0rd ahead")
	req.Equal("******* ahead", censored)
}

func Test_Nil_Moderator_Is_A_Noop(t *testing.T) {
	req := require.New(t)

	moderator, err := NewModerator(nil, '*')
	req.NoError(err)
	req.Nil(moderator)
	req.Equal("anything goes", moderator.Censor("anything goes"))
}
