// Package gce implements the orchestrator's Gateway port against the
// Google Compute Engine instances API.
package gce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	compute "cloud.google.com/go/compute/apiv1"
	"cloud.google.com/go/compute/apiv1/computepb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/proto"

	"github.com/divyamohan1993/project-orchestrator/internal/logic/orchestrator"
)

const (
	sourceImage    = "projects/ubuntu-os-cloud/global/images/family/ubuntu-2204-lts"
	bootDiskSizeGB = 10

	provisioningModelSpot = "SPOT"
	terminationDelete     = "DELETE"
	maintenanceTerminate  = "TERMINATE"
	accessOneToOneNAT     = "ONE_TO_ONE_NAT"
)

// Config carries the fixed provider coordinates for all instances.
type Config struct {
	Project     string
	Zone        string
	MachineType string

	// CallTimeout bounds each provider call. Timeouts surface as ordinary
	// gateway errors; the outcome is reconciled by the next sweep.
	CallTimeout time.Duration
}

// Adapter talks to the compute instances API. All demo instances are
// minimally sized spot machines that the provider itself deletes on
// preemption.
type Adapter struct {
	logger    *slog.Logger
	instances *compute.InstancesClient
	cfg       Config
}

// New creates a GCE adapter using application default credentials unless
// overridden by opts.
func New(
	ctx context.Context,
	logger *slog.Logger,
	cfg Config,
	opts ...option.ClientOption,
) (*Adapter, error) {
	client, err := compute.NewInstancesRESTClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create instances client: %w", err)
	}

	return &Adapter{
		logger:    logger,
		instances: client,
		cfg:       cfg,
	}, nil
}

var _ orchestrator.Gateway = (*Adapter)(nil)

// Close releases the underlying API client.
func (a *Adapter) Close() error {
	return a.instances.Close()
}

func (a *Adapter) CreateInstance(
	ctx context.Context,
	spec orchestrator.CreateSpec,
) (*orchestrator.CreatedInstance, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	resource := &computepb.Instance{
		Name:        proto.String(spec.Name),
		MachineType: proto.String(fmt.Sprintf("zones/%s/machineTypes/%s", a.cfg.Zone, a.cfg.MachineType)),
		Scheduling: &computepb.Scheduling{
			ProvisioningModel:         proto.String(provisioningModelSpot),
			InstanceTerminationAction: proto.String(terminationDelete),
			OnHostMaintenance:         proto.String(maintenanceTerminate),
		},
		Disks: []*computepb.AttachedDisk{{
			Boot:       proto.Bool(true),
			AutoDelete: proto.Bool(true),
			InitializeParams: &computepb.AttachedDiskInitializeParams{
				SourceImage: proto.String(sourceImage),
				DiskSizeGb:  proto.Int64(bootDiskSizeGB),
				DiskType:    proto.String(fmt.Sprintf("zones/%s/diskTypes/pd-standard", a.cfg.Zone)),
			},
		}},
		NetworkInterfaces: []*computepb.NetworkInterface{{
			AccessConfigs: []*computepb.AccessConfig{{
				Name: proto.String("External NAT"),
				Type: proto.String(accessOneToOneNAT),
			}},
		}},
		Metadata: &computepb.Metadata{
			Items: []*computepb.Items{{
				Key:   proto.String("startup-script"),
				Value: proto.String(spec.StartupScript),
			}},
		},
		Tags: &computepb.Tags{
			Items: []string{"http-server", "https-server"},
		},
	}

	op, err := a.instances.Insert(ctx, &computepb.InsertInstanceRequest{
		Project:          a.cfg.Project,
		Zone:             a.cfg.Zone,
		InstanceResource: resource,
	})
	if err != nil {
		return nil, fmt.Errorf("insert instance: %w", err)
	}

	if err := op.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait insert instance: %w", err)
	}

	created, err := a.instances.Get(ctx, &computepb.GetInstanceRequest{
		Project:  a.cfg.Project,
		Zone:     a.cfg.Zone,
		Instance: spec.Name,
	})
	if err != nil {
		// The instance exists; the address just is not readable yet.
		a.logger.WarnContext(ctx, "read back created instance", "name", spec.Name, "reason", err)

		return &orchestrator.CreatedInstance{Name: spec.Name}, nil
	}

	return &orchestrator.CreatedInstance{
		Name:         created.GetName(),
		ExternalAddr: externalAddr(created),
	}, nil
}

func (a *Adapter) DescribeInstance(
	ctx context.Context,
	name string,
) (orchestrator.LifecyclePhase, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	inst, err := a.instances.Get(ctx, &computepb.GetInstanceRequest{
		Project:  a.cfg.Project,
		Zone:     a.cfg.Zone,
		Instance: name,
	})
	if err != nil {
		if isGoogleNotFound(err) {
			return "", fmt.Errorf("get instance: %w", errInstanceNotFound)
		}

		return "", fmt.Errorf("get instance: %w", err)
	}

	return phaseFromStatus(inst.GetStatus()), nil
}

func (a *Adapter) DeleteInstance(ctx context.Context, name string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	op, err := a.instances.Delete(ctx, &computepb.DeleteInstanceRequest{
		Project:  a.cfg.Project,
		Zone:     a.cfg.Zone,
		Instance: name,
	})
	if err != nil {
		if isGoogleNotFound(err) {
			return fmt.Errorf("delete instance: %w", errInstanceNotFound)
		}

		return fmt.Errorf("delete instance: %w", err)
	}

	if err := op.Wait(ctx); err != nil {
		if isGoogleNotFound(err) {
			return fmt.Errorf("delete instance: %w", errInstanceNotFound)
		}

		return fmt.Errorf("wait delete instance: %w", err)
	}

	return nil
}

func (a *Adapter) ListInstancesByPrefix(
	ctx context.Context,
	prefix string,
) ([]string, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	it := a.instances.List(ctx, &computepb.ListInstancesRequest{
		Project: a.cfg.Project,
		Zone:    a.cfg.Zone,
		Filter:  proto.String(fmt.Sprintf("name eq %q", prefix+".*")),
	})

	var names []string

	for {
		inst, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("list instances: %w", err)
		}

		names = append(names, inst.GetName())
	}

	return names, nil
}

func (a *Adapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.CallTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, a.cfg.CallTimeout)
}
