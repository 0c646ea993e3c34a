package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/models"
)

func TestNew_DefaultConfig(t *testing.T) {
	application, err := New(common.NewDefaultConfig(), arbor.NewLogger())
	require.NoError(t, err)
	defer application.Close()

	assert.NotNil(t, application.Router)
	assert.NotNil(t, application.StatusService)
	assert.NotNil(t, application.AskHandler)
	assert.Nil(t, application.SlackBot)
	assert.False(t, application.Faqs.Status().Configured)
	assert.False(t, application.Procedures.Status().Configured)
}

func TestNew_SlackWithoutTokens(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Slack.Enabled = true

	_, err := New(cfg, arbor.NewLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slack")
}

func TestApp_StartAskClose(t *testing.T) {
	application, err := New(common.NewDefaultConfig(), arbor.NewLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, application.Start(ctx))
	assert.True(t, application.SchedulerService.IsRunning())

	statuses := application.SchedulerService.RunNow(ctx)
	require.Len(t, statuses, 2)
	for _, s := range statuses {
		assert.False(t, s.Configured)
	}

	decision, reply := application.Router.Ask(ctx, "thanks!")
	assert.Equal(t, models.DecisionAcknowledge, decision.Kind)
	assert.NotEmpty(t, reply.Text)

	require.NoError(t, application.Close())
	assert.False(t, application.SchedulerService.IsRunning())
}
