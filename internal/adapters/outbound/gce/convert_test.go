package gce

import (
	"testing"

	"cloud.google.com/go/compute/apiv1/computepb"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/divyamohan1993/project-orchestrator/internal/logic/orchestrator"
)

func Test_phaseFromStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status string
		want   orchestrator.LifecyclePhase
	}{
		{"PROVISIONING", orchestrator.PhaseProvisioning},
		{"STAGING", orchestrator.PhaseProvisioning},
		{"RUNNING", orchestrator.PhaseRunning},
		{"STOPPING", orchestrator.PhaseStopping},
		{"SUSPENDING", orchestrator.PhaseStopping},
		{"TERMINATED", orchestrator.PhaseTerminated},
		{"STOPPED", orchestrator.PhaseTerminated},
		{"SUSPENDED", orchestrator.PhaseTerminated},
		{"SOMETHING_NEW", orchestrator.PhaseProvisioning},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, phaseFromStatus(tt.status))
		})
	}
}

func Test_externalAddr(t *testing.T) {
	t.Parallel()

	t.Run("no interfaces", func(t *testing.T) {
		t.Parallel()

		require.Empty(t, externalAddr(&computepb.Instance{}))
	})

	t.Run("access config without nat ip", func(t *testing.T) {
		t.Parallel()

		inst := &computepb.Instance{
			NetworkInterfaces: []*computepb.NetworkInterface{{
				AccessConfigs: []*computepb.AccessConfig{{}},
			}},
		}

		require.Empty(t, externalAddr(inst))
	})

	t.Run("first nat ip wins", func(t *testing.T) {
		t.Parallel()

		inst := &computepb.Instance{
			NetworkInterfaces: []*computepb.NetworkInterface{{
				AccessConfigs: []*computepb.AccessConfig{
					{NatIP: proto.String("203.0.113.10")},
					{NatIP: proto.String("203.0.113.11")},
				},
			}},
		}

		require.Equal(t, "203.0.113.10", externalAddr(inst))
	})
}
