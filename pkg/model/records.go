// Package model defines the data shapes flowing through the ingestion
// pipeline: plain input records produced by collection, and the derived
// snapshot entities written to the graph. Records carry resource quantities
// as the raw strings the cluster API rendered; normalization happens during
// snapshot building.
package model

import "time"

// ClusterRecords is one cluster's raw state as observed in a single pass.
type ClusterRecords struct {
	Cluster  ClusterInfo
	Nodes    []NodeRecord
	Pods     []PodRecord
	Services []ServiceRecord

	// Usage is nil when the metrics API was unavailable.
	Usage *UsageRecord
}

// ClusterInfo identifies the observed cluster.
type ClusterInfo struct {
	Context string
	Server  string
	Version string

	// AvailableContexts lists every context this process watches.
	AvailableContexts []string
}

// NodeRecord is one worker node as reported by the cluster API.
type NodeRecord struct {
	Name             string
	Status           string
	Roles            []string
	CreatedAt        time.Time
	Version          string
	InternalIP       string
	ExternalIP       *string
	OSImage          string
	KernelVersion    string
	ContainerRuntime string

	// Raw quantity strings, "" when unreported.
	CPUCapacity       string
	MemoryCapacity    string
	CPUAllocatable    string
	MemoryAllocatable string
}

// PodRecord is one pod with its container details.
type PodRecord struct {
	Name       string
	Namespace  string
	Phase      string
	Ready      string
	Restarts   int32
	IP         string
	Node       string
	CreatedAt  time.Time
	Containers []ContainerRecord
}

// ContainerRecord is one container inside a pod. Requests and limits are raw
// quantity strings; "" means the field was not declared.
type ContainerRecord struct {
	Name         string
	Image        string
	Ready        bool
	RestartCount int32
	State        string

	CPURequest    string
	MemoryRequest string
	CPULimit      string
	MemoryLimit   string
}

// ServiceRecord is one service as reported by the cluster API.
type ServiceRecord struct {
	Name        string
	Namespace   string
	Type        string
	ClusterIP   string
	ExternalIPs []string
	Ports       []ServicePort
	Selector    map[string]string
	CreatedAt   time.Time
}

// ServicePort is one exposed port of a service.
type ServicePort struct {
	Name       string `json:"name,omitempty"`
	Port       int32  `json:"port"`
	NodePort   int32  `json:"nodePort,omitempty"`
	Protocol   string `json:"protocol"`
	TargetPort string `json:"targetPort,omitempty"`
}

// UsageRecord holds one sample of live usage from the metrics API.
type UsageRecord struct {
	CollectedAt time.Time
	Nodes       []NodeUsageRecord
	Pods        []PodUsageRecord
}

// NodeUsageRecord is a node's live usage with raw quantity strings.
type NodeUsageRecord struct {
	Name   string
	CPU    string
	Memory string
}

// PodUsageRecord is a pod's live usage broken down by container.
type PodUsageRecord struct {
	Name       string
	Namespace  string
	Containers []ContainerUsageRecord
}

// ContainerUsageRecord is one container's live usage.
type ContainerUsageRecord struct {
	Name   string
	CPU    string
	Memory string
}
