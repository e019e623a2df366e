// Package graph writes cluster snapshots into a Neo4j property graph. A sync
// is split into two halves: BuildPlan turns a snapshot into an ordered,
// deterministic set of merge statements, and an Executor applies the whole
// plan in one transaction. The split keeps the graph shape testable without a
// running database.
package graph

import (
	"encoding/json"
	"time"

	"github.com/kubegraph/kubegraph/pkg/model"
)

// Node labels and relationship types of the published graph contract.
const (
	LabelVM             = "VM"
	LabelCluster        = "Cluster"
	LabelNode           = "Node"
	LabelPod            = "Pod"
	LabelContainer      = "Container"
	LabelService        = "Service"
	LabelClusterMetrics = "ClusterMetrics"
	LabelResourceUsage  = "ResourceUsage"

	RelHosts            = "HOSTS"
	RelContains         = "CONTAINS"
	RelHasResourceUsage = "HAS_RESOURCE_USAGE"
)

const (
	propID        = "id"
	propClusterID = "cluster_id"
)

// NodeMerge upserts one entity: create the node when absent, then overlay
// Props. A nil property value removes the property.
type NodeMerge struct {
	Label string
	// Key is the property the merge matches on, "id" for hierarchy entities
	// and "cluster_id" for the per-cluster singletons.
	Key   string
	ID    string
	Props map[string]any
}

// RelationshipMerge upserts one edge between two entities merged earlier in
// the same plan. An edge whose endpoints do not both exist is skipped, never
// created dangling.
type RelationshipMerge struct {
	Type      string
	FromLabel string
	FromKey   string
	FromID    string
	ToLabel   string
	ToKey     string
	ToID      string
}

// Plan is the full set of merges for one cluster sync, ordered parents before
// children so every relationship's endpoints exist by the time it is merged.
// Building a plan from the same snapshot always yields the same plan.
type Plan struct {
	SyncedAt      time.Time
	Nodes         []NodeMerge
	Relationships []RelationshipMerge
}

func (p *Plan) mergeNode(label, key, id string, props map[string]any) {
	p.Nodes = append(p.Nodes, NodeMerge{Label: label, Key: key, ID: id, Props: props})
}

func (p *Plan) mergeRel(relType, fromLabel, fromKey, fromID, toLabel, toKey, toID string) {
	p.Relationships = append(p.Relationships, RelationshipMerge{
		Type:      relType,
		FromLabel: fromLabel,
		FromKey:   fromKey,
		FromID:    fromID,
		ToLabel:   toLabel,
		ToKey:     toKey,
		ToID:      toID,
	})
}

// BuildPlan flattens one snapshot plus its host identity into merge
// statements. Every merge stamps last_updated with now; no statement ever
// deletes, so entities absent from the snapshot keep their previous state.
func BuildPlan(host *model.Host, snap *model.Snapshot, now time.Time) *Plan {
	now = now.UTC()
	plan := &Plan{SyncedAt: now}
	clusterID := snap.Cluster.ID

	plan.mergeNode(LabelVM, propID, host.ID, map[string]any{
		"hostname":     host.Name,
		"ip_addresses": stringList(host.Addresses),
		"platform":     host.Platform,
		"runtime":      host.Runtime,
		"first_seen":   host.FirstSeen.UTC(),
		"last_updated": now,
	})

	plan.mergeNode(LabelCluster, propID, clusterID, map[string]any{
		"context": snap.Cluster.Context,
		"host_id": host.ID,
		"cluster_info": jsonBlob(map[string]string{
			"server":  snap.Cluster.Server,
			"version": snap.Cluster.Version,
		}),
		"available_contexts": stringList(snap.Cluster.AvailableContexts),
		"last_updated":       now,
	})

	nodeIDByName := make(map[string]string, len(snap.Nodes))
	for _, node := range snap.Nodes {
		nodeIDByName[node.Name] = node.ID
		plan.mergeNode(LabelNode, propID, node.ID, nodeProps(node, now))
	}

	for _, pod := range snap.Pods {
		plan.mergeNode(LabelPod, propID, pod.ID, podProps(pod, now))
		for _, container := range pod.Containers {
			plan.mergeNode(LabelContainer, propID, container.ID, containerProps(container, now))
		}
	}

	for _, svc := range snap.Services {
		plan.mergeNode(LabelService, propID, svc.ID, serviceProps(svc, now))
	}

	plan.mergeNode(LabelClusterMetrics, propClusterID, clusterID, metricsProps(snap.Aggregate, now))

	if snap.Usage.MetricsAvailable {
		plan.mergeNode(LabelResourceUsage, propClusterID, clusterID, usageProps(snap.Usage, now))
	}

	plan.mergeRel(RelHosts, LabelVM, propID, host.ID, LabelCluster, propID, clusterID)

	for _, node := range snap.Nodes {
		plan.mergeRel(RelContains, LabelCluster, propID, clusterID, LabelNode, propID, node.ID)
	}
	for _, pod := range snap.Pods {
		plan.mergeRel(RelContains, LabelCluster, propID, clusterID, LabelPod, propID, pod.ID)
	}
	for _, svc := range snap.Services {
		plan.mergeRel(RelContains, LabelCluster, propID, clusterID, LabelService, propID, svc.ID)
	}

	if snap.Usage.MetricsAvailable {
		plan.mergeRel(RelHasResourceUsage, LabelCluster, propID, clusterID, LabelResourceUsage, propClusterID, clusterID)
	}

	for _, pod := range snap.Pods {
		if nodeID, ok := nodeIDByName[pod.NodeName]; ok {
			plan.mergeRel(RelHosts, LabelNode, propID, nodeID, LabelPod, propID, pod.ID)
		}
	}
	for _, pod := range snap.Pods {
		for _, container := range pod.Containers {
			plan.mergeRel(RelContains, LabelPod, propID, pod.ID, LabelContainer, propID, container.ID)
		}
	}

	return plan
}

func nodeProps(node model.Node, now time.Time) map[string]any {
	return map[string]any{
		"name":               node.Name,
		"status":             node.Status,
		"roles":              stringList(node.Roles),
		"kubelet_version":    node.Version,
		"internal_ip":        node.InternalIP,
		"external_ip":        optionalString(node.ExternalIP),
		"os_image":           node.OSImage,
		"kernel_version":     node.KernelVersion,
		"container_runtime":  node.ContainerRuntime,
		"created_at":         node.CreatedAt.UTC(),
		"cpu_capacity":       node.CPUCapacityMillis,
		"memory_capacity":    node.MemoryCapacityMiB,
		"cpu_allocatable":    node.CPUAllocatableMillis,
		"memory_allocatable": node.MemoryAllocatableMiB,
		"cpu_usage":          node.CPUUsageMillis,
		"memory_usage":       node.MemoryUsageMiB,
		"cluster_id":         node.ClusterID,
		"last_updated":       now,
	}
}

func podProps(pod model.Pod, now time.Time) map[string]any {
	return map[string]any{
		"name":            pod.Name,
		"namespace":       pod.Namespace,
		"phase":           pod.Phase,
		"ready":           pod.Ready,
		"restarts":        int64(pod.Restarts),
		"ip":              pod.IP,
		"node":            pod.NodeName,
		"created_at":      pod.CreatedAt.UTC(),
		"cpu_requests":    pod.CPURequestMillis,
		"memory_requests": pod.MemoryRequestMiB,
		"cpu_limits":      pod.CPULimitMillis,
		"memory_limits":   pod.MemoryLimitMiB,
		"cpu_usage":       pod.CPUUsageMillis,
		"memory_usage":    pod.MemoryUsageMiB,
		"cluster_id":      pod.ClusterID,
		"last_updated":    now,
	}
}

func containerProps(container model.Container, now time.Time) map[string]any {
	return map[string]any{
		"name":             container.Name,
		"image":            container.Image,
		"image_repository": optionalString(container.ImageRepository),
		"image_tag":        optionalString(container.ImageTag),
		"state":            container.State,
		"ready":            container.Ready,
		"restart_count":    int64(container.RestartCount),
		"cpu_request":      container.CPURequestMillis,
		"memory_request":   container.MemoryRequestMiB,
		"cpu_limit":        optionalInt(container.CPULimitMillis),
		"memory_limit":     optionalInt(container.MemoryLimitMiB),
		"cpu_usage":        container.CPUUsageMillis,
		"memory_usage":     container.MemoryUsageMiB,
		"pod_id":           container.PodID,
		"last_updated":     now,
	}
}

func serviceProps(svc model.Service, now time.Time) map[string]any {
	ports := svc.Ports
	if ports == nil {
		ports = []model.ServicePort{}
	}
	selector := svc.Selector
	if selector == nil {
		selector = map[string]string{}
	}
	return map[string]any{
		"name":         svc.Name,
		"namespace":    svc.Namespace,
		"type":         svc.Type,
		"cluster_ip":   svc.ClusterIP,
		"external_ips": stringList(svc.ExternalIPs),
		"ports":        jsonBlob(ports),
		"selector":     jsonBlob(selector),
		"created_at":   svc.CreatedAt.UTC(),
		"cluster_id":   svc.ClusterID,
		"last_updated": now,
	}
}

func metricsProps(agg model.ClusterAggregate, now time.Time) map[string]any {
	return map[string]any{
		"total_nodes":        agg.TotalNodes,
		"ready_nodes":        agg.ReadyNodes,
		"total_pods":         agg.TotalPods,
		"running_pods":       agg.RunningPods,
		"pending_pods":       agg.PendingPods,
		"failed_pods":        agg.FailedPods,
		"succeeded_pods":     agg.SucceededPods,
		"total_services":     agg.TotalServices,
		"total_containers":   agg.TotalContainers,
		"total_cpu_usage":    agg.CPUUsageMillis,
		"total_memory_usage": agg.MemoryUsageMiB,
		"last_updated":       now,
	}
}

func usageProps(usage model.UsageSample, now time.Time) map[string]any {
	return map[string]any{
		"node_metrics": jsonBlob(usage.Nodes),
		"pod_metrics":  jsonBlob(usage.Pods),
		"collected_at": usage.CollectedAt.UTC(),
		"last_updated": now,
	}
}

// stringList converts to the driver's generic list type. Empty stays an empty
// list property rather than a removal.
func stringList(values []string) []any {
	list := make([]any, len(values))
	for i, v := range values {
		list[i] = v
	}
	return list
}

// optionalString maps "" to nil so the merge removes the property instead of
// storing an empty string.
func optionalString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optionalInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func jsonBlob(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
