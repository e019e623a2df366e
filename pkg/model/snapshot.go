package model

import "time"

// HostIdentity describes the machine running this process, resolved once at
// startup. FirstSeen anchors the host identifier and stays fixed for the
// process lifetime.
type HostIdentity struct {
	Hostname  string
	Addresses []string
	Platform  string
	Runtime   string
	FirstSeen time.Time
}

// Host is the host machine entity written to the graph.
type Host struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Addresses []string  `json:"addresses"`
	Platform  string    `json:"platform"`
	Runtime   string    `json:"runtime"`
	FirstSeen time.Time `json:"first_seen"`
}

// Snapshot is the normalized state of one cluster at one point in time.
// All quantities are in canonical units: integer millicores and MiB for
// declared resources, float for live usage.
type Snapshot struct {
	TakenAt   time.Time        `json:"taken_at"`
	Cluster   Cluster          `json:"cluster"`
	Nodes     []Node           `json:"nodes"`
	Pods      []Pod            `json:"pods"`
	Services  []Service        `json:"services"`
	Aggregate ClusterAggregate `json:"aggregate"`
	Usage     UsageSample      `json:"usage"`

	// Dropped counts entities excluded from the snapshot because their
	// records failed identity derivation or structural validation.
	Dropped int `json:"dropped,omitempty"`
}

// Cluster is the cluster entity.
type Cluster struct {
	ID                string   `json:"id"`
	Context           string   `json:"context"`
	Server            string   `json:"server"`
	Version           string   `json:"version,omitempty"`
	AvailableContexts []string `json:"available_contexts,omitempty"`
}

// Node is a worker node entity.
type Node struct {
	ID        string    `json:"id"`
	ClusterID string    `json:"cluster_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Roles     []string  `json:"roles,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Version   string    `json:"version"`

	InternalIP       string `json:"internal_ip,omitempty"`
	ExternalIP       string `json:"external_ip,omitempty"`
	OSImage          string `json:"os_image,omitempty"`
	KernelVersion    string `json:"kernel_version,omitempty"`
	ContainerRuntime string `json:"container_runtime,omitempty"`

	CPUCapacityMillis    int64 `json:"cpu_capacity_millicores"`
	MemoryCapacityMiB    int64 `json:"memory_capacity_mib"`
	CPUAllocatableMillis int64 `json:"cpu_allocatable_millicores"`
	MemoryAllocatableMiB int64 `json:"memory_allocatable_mib"`

	// Live usage; 0 means no sample was available.
	CPUUsageMillis float64 `json:"cpu_usage_millicores"`
	MemoryUsageMiB float64 `json:"memory_usage_mib"`
}

// Pod is a pod entity with per-pod totals summed over its containers.
type Pod struct {
	ID        string    `json:"id"`
	ClusterID string    `json:"cluster_id"`
	Name      string    `json:"name"`
	Namespace string    `json:"namespace"`
	Phase     string    `json:"phase"`
	Ready     string    `json:"ready"`
	Restarts  int32     `json:"restarts"`
	IP        string    `json:"ip,omitempty"`
	NodeName  string    `json:"node,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	CPURequestMillis int64 `json:"cpu_request_millicores"`
	MemoryRequestMiB int64 `json:"memory_request_mib"`
	CPULimitMillis   int64 `json:"cpu_limit_millicores"`
	MemoryLimitMiB   int64 `json:"memory_limit_mib"`

	CPUUsageMillis float64 `json:"cpu_usage_millicores"`
	MemoryUsageMiB float64 `json:"memory_usage_mib"`

	Containers []Container `json:"containers"`
}

// Container is a container entity.
type Container struct {
	ID    string `json:"id"`
	PodID string `json:"pod_id"`
	Name  string `json:"name"`

	Image           string `json:"image"`
	ImageRepository string `json:"image_repository,omitempty"`
	ImageTag        string `json:"image_tag,omitempty"`

	Ready        bool   `json:"ready"`
	RestartCount int32  `json:"restart_count"`
	State        string `json:"state"`

	CPURequestMillis int64 `json:"cpu_request_millicores"`
	MemoryRequestMiB int64 `json:"memory_request_mib"`

	// Limits are optional; nil means not declared.
	CPULimitMillis *int64 `json:"cpu_limit_millicores,omitempty"`
	MemoryLimitMiB *int64 `json:"memory_limit_mib,omitempty"`

	CPUUsageMillis float64 `json:"cpu_usage_millicores"`
	MemoryUsageMiB float64 `json:"memory_usage_mib"`
}

// Service is a service entity.
type Service struct {
	ID          string            `json:"id"`
	ClusterID   string            `json:"cluster_id"`
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace"`
	Type        string            `json:"type"`
	ClusterIP   string            `json:"cluster_ip,omitempty"`
	ExternalIPs []string          `json:"external_ips,omitempty"`
	Ports       []ServicePort     `json:"ports,omitempty"`
	Selector    map[string]string `json:"selector,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ClusterAggregate is the per-cluster rollup computed in a single pass over
// the snapshot's entities.
type ClusterAggregate struct {
	ClusterID string `json:"cluster_id"`

	TotalNodes int `json:"total_nodes"`
	ReadyNodes int `json:"ready_nodes"`

	TotalPods     int `json:"total_pods"`
	RunningPods   int `json:"running_pods"`
	PendingPods   int `json:"pending_pods"`
	FailedPods    int `json:"failed_pods"`
	SucceededPods int `json:"succeeded_pods"`

	TotalServices   int `json:"total_services"`
	TotalContainers int `json:"total_containers"`

	CPUUsageMillis float64 `json:"cpu_usage_millicores"`
	MemoryUsageMiB float64 `json:"memory_usage_mib"`
}

// Usage is a single live usage reading in canonical units.
type Usage struct {
	CPUMillis float64 `json:"cpu_millicores"`
	MemoryMiB float64 `json:"memory_mib"`
}

// UsageSample is the raw usage payload attached to a cluster, keyed by node
// name and by "namespace/pod". Maps are empty, never nil.
type UsageSample struct {
	ClusterID   string           `json:"cluster_id"`
	CollectedAt time.Time        `json:"collected_at"`
	Nodes       map[string]Usage `json:"nodes"`
	Pods        map[string]Usage `json:"pods"`

	// MetricsAvailable reports whether the metrics source produced a sample
	// this cycle. When false the maps are empty and the sample is not
	// written to the graph.
	MetricsAvailable bool `json:"metrics_available"`
}
