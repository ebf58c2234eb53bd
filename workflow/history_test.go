package workflow

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorenmh/infrastructure-shared/proxy-deploy/models"
)

type memoryStore struct {
	deployments []*models.Deployment
	err         error
}

func (m *memoryStore) CreateDeployment(dep *models.Deployment) error {
	if m.err != nil {
		return m.err
	}
	m.deployments = append(m.deployments, dep)
	return nil
}

func TestOutcomeHistory(t *testing.T) {
	out := newOutcome(KindDeploy)
	out.advance(StateValidated)
	out.advance(StateImported)
	out.Revision = "3"
	out.fail(errors.New("something happened in Apigee"))

	dep := out.History(testOptions("test"), errors.New("something happened in Apigee"))

	_, err := uuid.Parse(dep.ID)
	assert.NoError(t, err)
	assert.Equal(t, "deploy", dep.Workflow)
	assert.Equal(t, "gulp-v1", dep.API)
	assert.Equal(t, "test", dep.Environment)
	assert.Equal(t, "3", dep.Revision)
	assert.Equal(t, "failed", dep.State)
	assert.Equal(t, []string{"start", "validated", "imported", "failed"}, dep.Transitions)
	assert.Equal(t, "username", dep.DeployedBy)
	assert.Equal(t, "something happened in Apigee", dep.Message)
	assert.False(t, dep.DeployedAt.IsZero())
}

func TestRunnerRecord(t *testing.T) {
	runner, hook := newTestRunner(&mockClient{})
	out := newOutcome(KindImport)
	out.advance(StateDone)

	t.Run("stores the run", func(t *testing.T) {
		store := &memoryStore{}

		dep := runner.Record(store, out, testOptions("test"), nil)
		require.NotNil(t, dep)
		require.Len(t, store.deployments, 1)
		assert.Same(t, dep, store.deployments[0])
		assert.True(t, dep.Succeeded())
		assert.Empty(t, dep.Message)
	})

	t.Run("storage failure is logged", func(t *testing.T) {
		store := &memoryStore{err: errors.New("disk full")}

		assert.Nil(t, runner.Record(store, out, testOptions("test"), nil))
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, "failed to record import of gulp-v1: disk full", hook.LastEntry().Message)
	})

	t.Run("nil store", func(t *testing.T) {
		assert.Nil(t, runner.Record(nil, out, testOptions("test"), nil))
	})
}
