package gce

import (
	"cloud.google.com/go/compute/apiv1/computepb"

	"github.com/divyamohan1993/project-orchestrator/internal/logic/orchestrator"
)

// phaseFromStatus maps the compute API's status vocabulary onto the
// normalized lifecycle phases. Unknown statuses report as Provisioning,
// the only phase that never triggers cleanup.
func phaseFromStatus(status string) orchestrator.LifecyclePhase {
	switch status {
	case "PROVISIONING", "STAGING":
		return orchestrator.PhaseProvisioning
	case "RUNNING":
		return orchestrator.PhaseRunning
	case "STOPPING", "SUSPENDING":
		return orchestrator.PhaseStopping
	case "TERMINATED", "STOPPED", "SUSPENDED":
		return orchestrator.PhaseTerminated
	}

	return orchestrator.PhaseProvisioning
}

// externalAddr returns the first NAT address assigned to the instance, or
// empty if the provider has not allocated one yet.
func externalAddr(inst *computepb.Instance) string {
	for _, nic := range inst.GetNetworkInterfaces() {
		for _, ac := range nic.GetAccessConfigs() {
			if ip := ac.GetNatIP(); ip != "" {
				return ip
			}
		}
	}

	return ""
}
