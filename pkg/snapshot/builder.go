// Package snapshot turns raw cluster records into a normalized Snapshot:
// quantities in canonical units, stable identifiers derived for every entity,
// live usage cross-referenced, and the per-cluster aggregate computed.
//
// A record that fails identity derivation or structural validation drops that
// entity alone; collection of the remaining entities continues. Malformed
// quantities degrade to zero with a warning.
package snapshot

import (
	"log/slog"
	"time"

	"k8s.io/utils/ptr"

	kgerrors "github.com/kubegraph/kubegraph/pkg/errors"
	"github.com/kubegraph/kubegraph/pkg/identity"
	"github.com/kubegraph/kubegraph/pkg/model"
	"github.com/kubegraph/kubegraph/pkg/quantity"
)

// Builder constructs snapshots. Safe for concurrent use.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder returns a Builder logging through the given logger.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{logger: logger}
}

// Build derives a Snapshot from one cluster's records. hostID is the
// identifier of the observing host and scopes the cluster identifier.
//
// The returned error is non-nil only when the snapshot as a whole cannot be
// built: missing records, an empty context, or a cluster identity that fails
// derivation. Per-entity failures are logged, counted in Snapshot.Dropped,
// and do not abort the build.
func (b *Builder) Build(hostID string, records *model.ClusterRecords) (*model.Snapshot, error) {
	if records == nil {
		return nil, kgerrors.New(kgerrors.ErrCodeSnapshotBuild, "cluster records are nil")
	}
	if records.Cluster.Context == "" {
		return nil, kgerrors.New(kgerrors.ErrCodeSnapshotBuild, "cluster context is empty")
	}

	clusterID, err := identity.ForCluster(records.Cluster.Context, hostID)
	if err != nil {
		return nil, err
	}

	snap := &model.Snapshot{
		TakenAt: time.Now().UTC(),
		Cluster: model.Cluster{
			ID:                clusterID,
			Context:           records.Cluster.Context,
			Server:            records.Cluster.Server,
			Version:           records.Cluster.Version,
			AvailableContexts: records.Cluster.AvailableContexts,
		},
	}

	usage := b.indexUsage(records.Usage)

	for _, rec := range records.Nodes {
		node, err := b.buildNode(rec, clusterID, usage)
		if err != nil {
			b.logger.Warn("dropping node from snapshot", "node", rec.Name, "error", err)
			snap.Dropped++
			continue
		}
		snap.Nodes = append(snap.Nodes, node)
	}

	for _, rec := range records.Pods {
		pod, dropped, err := b.buildPod(rec, clusterID, usage)
		snap.Dropped += dropped
		if err != nil {
			b.logger.Warn("dropping pod from snapshot",
				"pod", rec.Name, "namespace", rec.Namespace, "error", err)
			snap.Dropped++
			continue
		}
		snap.Pods = append(snap.Pods, pod)
	}

	for _, rec := range records.Services {
		svc, err := b.buildService(rec, clusterID)
		if err != nil {
			b.logger.Warn("dropping service from snapshot",
				"service", rec.Name, "namespace", rec.Namespace, "error", err)
			snap.Dropped++
			continue
		}
		snap.Services = append(snap.Services, svc)
	}

	snap.Aggregate = aggregate(clusterID, snap)

	snap.Usage = model.UsageSample{
		ClusterID:        clusterID,
		CollectedAt:      snap.TakenAt,
		Nodes:            usage.nodes,
		Pods:             usage.pods,
		MetricsAvailable: records.Usage != nil,
	}
	if records.Usage != nil && !records.Usage.CollectedAt.IsZero() {
		snap.Usage.CollectedAt = records.Usage.CollectedAt
	}

	b.logger.Debug("snapshot built",
		"cluster", records.Cluster.Context,
		"nodes", len(snap.Nodes),
		"pods", len(snap.Pods),
		"services", len(snap.Services),
		"dropped", snap.Dropped,
	)

	return snap, nil
}

func (b *Builder) buildNode(rec model.NodeRecord, clusterID string, usage usageIndex) (model.Node, error) {
	if rec.Name == "" {
		return model.Node{}, kgerrors.New(kgerrors.ErrCodeSnapshotBuild, "node record has no name")
	}

	id, err := identity.ForNode(rec.Name, clusterID)
	if err != nil {
		return model.Node{}, err
	}

	entity := "node/" + rec.Name
	node := model.Node{
		ID:               id,
		ClusterID:        clusterID,
		Name:             rec.Name,
		Status:           rec.Status,
		Roles:            rec.Roles,
		CreatedAt:        rec.CreatedAt,
		Version:          rec.Version,
		InternalIP:       rec.InternalIP,
		OSImage:          rec.OSImage,
		KernelVersion:    rec.KernelVersion,
		ContainerRuntime: rec.ContainerRuntime,

		CPUCapacityMillis:    b.cpuMillis(entity, "cpu_capacity", rec.CPUCapacity),
		MemoryCapacityMiB:    b.memoryMiB(entity, "memory_capacity", rec.MemoryCapacity),
		CPUAllocatableMillis: b.cpuMillis(entity, "cpu_allocatable", rec.CPUAllocatable),
		MemoryAllocatableMiB: b.memoryMiB(entity, "memory_allocatable", rec.MemoryAllocatable),
	}
	if rec.ExternalIP != nil {
		node.ExternalIP = *rec.ExternalIP
	}

	if u, ok := usage.nodes[rec.Name]; ok {
		node.CPUUsageMillis = u.CPUMillis
		node.MemoryUsageMiB = u.MemoryMiB
	}

	return node, nil
}

// buildPod returns the pod entity plus the count of containers dropped from
// it. A failure of the pod itself is returned as err.
func (b *Builder) buildPod(rec model.PodRecord, clusterID string, usage usageIndex) (model.Pod, int, error) {
	if rec.Name == "" || rec.Namespace == "" {
		return model.Pod{}, 0, kgerrors.New(kgerrors.ErrCodeSnapshotBuild, "pod record has no name or namespace")
	}

	id, err := identity.ForPod(rec.Name, rec.Namespace, clusterID)
	if err != nil {
		return model.Pod{}, 0, err
	}

	pod := model.Pod{
		ID:        id,
		ClusterID: clusterID,
		Name:      rec.Name,
		Namespace: rec.Namespace,
		Phase:     rec.Phase,
		Ready:     rec.Ready,
		Restarts:  rec.Restarts,
		IP:        rec.IP,
		NodeName:  rec.Node,
		CreatedAt: rec.CreatedAt,
	}

	podKey := rec.Namespace + "/" + rec.Name
	dropped := 0

	for _, cr := range rec.Containers {
		container, err := b.buildContainer(cr, id, podKey, usage)
		if err != nil {
			b.logger.Warn("dropping container from snapshot",
				"pod", podKey, "container", cr.Name, "error", err)
			dropped++
			continue
		}
		pod.Containers = append(pod.Containers, container)

		pod.CPURequestMillis += container.CPURequestMillis
		pod.MemoryRequestMiB += container.MemoryRequestMiB
		if container.CPULimitMillis != nil {
			pod.CPULimitMillis += *container.CPULimitMillis
		}
		if container.MemoryLimitMiB != nil {
			pod.MemoryLimitMiB += *container.MemoryLimitMiB
		}
	}

	if u, ok := usage.pods[podKey]; ok {
		pod.CPUUsageMillis = u.CPUMillis
		pod.MemoryUsageMiB = u.MemoryMiB
	}

	return pod, dropped, nil
}

func (b *Builder) buildContainer(rec model.ContainerRecord, podID, podKey string, usage usageIndex) (model.Container, error) {
	if rec.Name == "" {
		return model.Container{}, kgerrors.New(kgerrors.ErrCodeSnapshotBuild, "container record has no name")
	}

	id, err := identity.ForContainer(rec.Name, podID)
	if err != nil {
		return model.Container{}, err
	}

	entity := "container/" + podKey + "/" + rec.Name
	repo, tag := parseImageRef(rec.Image)

	container := model.Container{
		ID:              id,
		PodID:           podID,
		Name:            rec.Name,
		Image:           rec.Image,
		ImageRepository: repo,
		ImageTag:        tag,
		Ready:           rec.Ready,
		RestartCount:    rec.RestartCount,
		State:           rec.State,

		CPURequestMillis: b.cpuMillis(entity, "cpu_request", rec.CPURequest),
		MemoryRequestMiB: b.memoryMiB(entity, "memory_request", rec.MemoryRequest),
	}

	if rec.CPULimit != "" {
		container.CPULimitMillis = ptr.To(b.cpuMillis(entity, "cpu_limit", rec.CPULimit))
	}
	if rec.MemoryLimit != "" {
		container.MemoryLimitMiB = ptr.To(b.memoryMiB(entity, "memory_limit", rec.MemoryLimit))
	}

	if u, ok := usage.containers[podKey+"/"+rec.Name]; ok {
		container.CPUUsageMillis = u.CPUMillis
		container.MemoryUsageMiB = u.MemoryMiB
	}

	return container, nil
}

func (b *Builder) buildService(rec model.ServiceRecord, clusterID string) (model.Service, error) {
	if rec.Name == "" || rec.Namespace == "" {
		return model.Service{}, kgerrors.New(kgerrors.ErrCodeSnapshotBuild, "service record has no name or namespace")
	}

	id, err := identity.ForService(rec.Name, rec.Namespace, clusterID)
	if err != nil {
		return model.Service{}, err
	}

	return model.Service{
		ID:          id,
		ClusterID:   clusterID,
		Name:        rec.Name,
		Namespace:   rec.Namespace,
		Type:        rec.Type,
		ClusterIP:   rec.ClusterIP,
		ExternalIPs: rec.ExternalIPs,
		Ports:       rec.Ports,
		Selector:    rec.Selector,
		CreatedAt:   rec.CreatedAt,
	}, nil
}

// usageIndex holds one usage sample keyed for cross-referencing: nodes by
// name, pods by "namespace/name", containers by "namespace/pod/container".
type usageIndex struct {
	nodes      map[string]model.Usage
	pods       map[string]model.Usage
	containers map[string]model.Usage
}

func (b *Builder) indexUsage(rec *model.UsageRecord) usageIndex {
	idx := usageIndex{
		nodes:      map[string]model.Usage{},
		pods:       map[string]model.Usage{},
		containers: map[string]model.Usage{},
	}
	if rec == nil {
		return idx
	}

	for _, n := range rec.Nodes {
		if n.Name == "" {
			continue
		}
		idx.nodes[n.Name] = model.Usage{
			CPUMillis: b.usageCPU("node/"+n.Name, n.CPU),
			MemoryMiB: b.usageMemory("node/"+n.Name, n.Memory),
		}
	}

	for _, p := range rec.Pods {
		if p.Name == "" || p.Namespace == "" {
			continue
		}
		podKey := p.Namespace + "/" + p.Name
		var total model.Usage
		for _, c := range p.Containers {
			u := model.Usage{
				CPUMillis: b.usageCPU("container/"+podKey+"/"+c.Name, c.CPU),
				MemoryMiB: b.usageMemory("container/"+podKey+"/"+c.Name, c.Memory),
			}
			idx.containers[podKey+"/"+c.Name] = u
			total.CPUMillis += u.CPUMillis
			total.MemoryMiB += u.MemoryMiB
		}
		idx.pods[podKey] = total
	}

	return idx
}

// cpuMillis normalizes a declared CPU quantity, degrading to zero on parse
// failure.
func (b *Builder) cpuMillis(entity, field, raw string) int64 {
	v, err := quantity.CPUMillicores(raw)
	if err != nil {
		b.logger.Warn("quantity parse failed, using zero", "entity", entity, "field", field, "value", raw)
	}
	return v
}

func (b *Builder) memoryMiB(entity, field, raw string) int64 {
	v, err := quantity.MemoryMiB(raw)
	if err != nil {
		b.logger.Warn("quantity parse failed, using zero", "entity", entity, "field", field, "value", raw)
	}
	return v
}

func (b *Builder) usageCPU(entity, raw string) float64 {
	v, err := quantity.CPUMillicoresFloat(raw)
	if err != nil {
		b.logger.Warn("usage parse failed, using zero", "entity", entity, "field", "cpu", "value", raw)
	}
	return v
}

func (b *Builder) usageMemory(entity, raw string) float64 {
	v, err := quantity.MemoryMiBFloat(raw)
	if err != nil {
		b.logger.Warn("usage parse failed, using zero", "entity", entity, "field", "memory", "value", raw)
	}
	return v
}

// aggregate computes the cluster rollup in a single pass over the built
// entities.
func aggregate(clusterID string, snap *model.Snapshot) model.ClusterAggregate {
	agg := model.ClusterAggregate{ClusterID: clusterID}

	for i := range snap.Nodes {
		agg.TotalNodes++
		if snap.Nodes[i].Status == "Ready" {
			agg.ReadyNodes++
		}
		agg.CPUUsageMillis += snap.Nodes[i].CPUUsageMillis
		agg.MemoryUsageMiB += snap.Nodes[i].MemoryUsageMiB
	}

	for i := range snap.Pods {
		agg.TotalPods++
		switch snap.Pods[i].Phase {
		case "Running":
			agg.RunningPods++
		case "Pending":
			agg.PendingPods++
		case "Failed":
			agg.FailedPods++
		case "Succeeded":
			agg.SucceededPods++
		}
		agg.TotalContainers += len(snap.Pods[i].Containers)
	}

	agg.TotalServices = len(snap.Services)

	return agg
}
