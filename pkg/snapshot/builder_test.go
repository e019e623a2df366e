package snapshot

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	kgerrors "github.com/kubegraph/kubegraph/pkg/errors"
	"github.com/kubegraph/kubegraph/pkg/model"
)

const hostID = "host_vm-1_20240101000000"

func newTestBuilder() *Builder {
	return NewBuilder(slog.New(slog.DiscardHandler))
}

func sampleRecords() *model.ClusterRecords {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &model.ClusterRecords{
		Cluster: model.ClusterInfo{
			Context:           "prod",
			Server:            "https://10.0.0.1:6443",
			Version:           "v1.31.2",
			AvailableContexts: []string{"prod", "staging"},
		},
		Nodes: []model.NodeRecord{
			{
				Name:              "node-a",
				Status:            "Ready",
				Roles:             []string{"control-plane"},
				CreatedAt:         created,
				Version:           "v1.31.2",
				InternalIP:        "10.0.0.10",
				ExternalIP:        ptr.To("203.0.113.7"),
				OSImage:           "Ubuntu 22.04.4 LTS",
				KernelVersion:     "5.15.0-105-generic",
				ContainerRuntime:  "containerd://1.7.13",
				CPUCapacity:       "4",
				MemoryCapacity:    "16252928Ki",
				CPUAllocatable:    "3920m",
				MemoryAllocatable: "15727616Ki",
			},
			{
				Name:           "node-b",
				Status:         "NotReady",
				CreatedAt:      created,
				CPUCapacity:    "2",
				MemoryCapacity: "8Gi",
			},
		},
		Pods: []model.PodRecord{
			{
				Name:      "api-7d9f",
				Namespace: "default",
				Phase:     "Running",
				Ready:     "2/2",
				Restarts:  3,
				IP:        "10.244.0.12",
				Node:      "node-a",
				CreatedAt: created,
				Containers: []model.ContainerRecord{
					{
						Name:          "app",
						Image:         "registry.example.com/team/api:v2.1.0",
						Ready:         true,
						State:         "running",
						CPURequest:    "250m",
						MemoryRequest: "128Mi",
						CPULimit:      "500m",
						MemoryLimit:   "256Mi",
					},
					{
						Name:          "sidecar",
						Image:         "envoyproxy/envoy:v1.29.2",
						Ready:         true,
						State:         "running",
						CPURequest:    "0.1",
						MemoryRequest: "64Mi",
					},
				},
			},
			{
				Name:      "batch-x1",
				Namespace: "jobs",
				Phase:     "Pending",
				Ready:     "0/1",
				CreatedAt: created,
				Containers: []model.ContainerRecord{
					{Name: "worker", Image: "worker", State: "waiting:ContainerCreating"},
				},
			},
		},
		Services: []model.ServiceRecord{
			{
				Name:      "api",
				Namespace: "default",
				Type:      "ClusterIP",
				ClusterIP: "10.96.0.20",
				Ports:     []model.ServicePort{{Name: "http", Port: 80, Protocol: "TCP", TargetPort: "8080"}},
				Selector:  map[string]string{"app": "api"},
				CreatedAt: created,
			},
		},
		Usage: &model.UsageRecord{
			CollectedAt: created.Add(time.Minute),
			Nodes: []model.NodeUsageRecord{
				{Name: "node-a", CPU: "1250m", Memory: "4096Mi"},
			},
			Pods: []model.PodUsageRecord{
				{
					Name:      "api-7d9f",
					Namespace: "default",
					Containers: []model.ContainerUsageRecord{
						{Name: "app", CPU: "156423n", Memory: "131072Ki"},
						{Name: "sidecar", CPU: "50m", Memory: "32Mi"},
					},
				},
			},
		},
	}
}

func TestBuild(t *testing.T) {
	snap, err := newTestBuilder().Build(hostID, sampleRecords())
	require.NoError(t, err)

	assert.Equal(t, "cluster_prod_host_vm-1_20240101000000", snap.Cluster.ID)
	assert.Equal(t, "prod", snap.Cluster.Context)
	assert.Equal(t, []string{"prod", "staging"}, snap.Cluster.AvailableContexts)
	assert.Zero(t, snap.Dropped)

	require.Len(t, snap.Nodes, 2)
	nodeA := snap.Nodes[0]
	assert.Equal(t, "node_node-a_cluster_prod_host_vm-1_20240101000000", nodeA.ID)
	assert.Equal(t, int64(4000), nodeA.CPUCapacityMillis)
	assert.Equal(t, int64(15872), nodeA.MemoryCapacityMiB)
	assert.Equal(t, int64(3920), nodeA.CPUAllocatableMillis)
	assert.Equal(t, int64(15359), nodeA.MemoryAllocatableMiB)
	assert.Equal(t, "203.0.113.7", nodeA.ExternalIP)
	assert.InDelta(t, 1250.0, nodeA.CPUUsageMillis, 1e-9)
	assert.InDelta(t, 4096.0, nodeA.MemoryUsageMiB, 1e-9)

	nodeB := snap.Nodes[1]
	assert.Equal(t, int64(8192), nodeB.MemoryCapacityMiB)
	assert.Empty(t, nodeB.ExternalIP)
	assert.Zero(t, nodeB.CPUUsageMillis)

	require.Len(t, snap.Pods, 2)
	api := snap.Pods[0]
	assert.Equal(t, "pod_api-7d9f_default_cluster_prod_host_vm-1_20240101000000", api.ID)
	assert.Equal(t, int64(350), api.CPURequestMillis)
	assert.Equal(t, int64(192), api.MemoryRequestMiB)
	assert.Equal(t, int64(500), api.CPULimitMillis)
	assert.Equal(t, int64(256), api.MemoryLimitMiB)
	assert.InDelta(t, 50.156423, api.CPUUsageMillis, 1e-6)
	assert.InDelta(t, 160.0, api.MemoryUsageMiB, 1e-9)

	require.Len(t, api.Containers, 2)
	app := api.Containers[0]
	assert.Equal(t, "container_app_pod_api-7d9f_default_cluster_prod_host_vm-1_20240101000000", app.ID)
	assert.Equal(t, "registry.example.com/team/api", app.ImageRepository)
	assert.Equal(t, "v2.1.0", app.ImageTag)
	require.NotNil(t, app.CPULimitMillis)
	assert.Equal(t, int64(500), *app.CPULimitMillis)
	assert.InDelta(t, 0.156423, app.CPUUsageMillis, 1e-9)
	assert.InDelta(t, 128.0, app.MemoryUsageMiB, 1e-9)

	sidecar := api.Containers[1]
	assert.Equal(t, int64(100), sidecar.CPURequestMillis)
	assert.Nil(t, sidecar.CPULimitMillis)
	assert.Nil(t, sidecar.MemoryLimitMiB)
	assert.Equal(t, "envoyproxy/envoy", sidecar.ImageRepository)

	require.Len(t, snap.Services, 1)
	assert.Equal(t, "service_api_default_cluster_prod_host_vm-1_20240101000000", snap.Services[0].ID)

	agg := snap.Aggregate
	assert.Equal(t, snap.Cluster.ID, agg.ClusterID)
	assert.Equal(t, 2, agg.TotalNodes)
	assert.Equal(t, 1, agg.ReadyNodes)
	assert.Equal(t, 2, agg.TotalPods)
	assert.Equal(t, 1, agg.RunningPods)
	assert.Equal(t, 1, agg.PendingPods)
	assert.Equal(t, 3, agg.TotalContainers)
	assert.Equal(t, 1, agg.TotalServices)
	assert.InDelta(t, 1250.0, agg.CPUUsageMillis, 1e-9)

	assert.Equal(t, snap.Cluster.ID, snap.Usage.ClusterID)
	assert.True(t, snap.Usage.MetricsAvailable)
	assert.Equal(t, sampleRecords().Usage.CollectedAt, snap.Usage.CollectedAt)
	assert.InDelta(t, 1250.0, snap.Usage.Nodes["node-a"].CPUMillis, 1e-9)
	assert.InDelta(t, 50.156423, snap.Usage.Pods["default/api-7d9f"].CPUMillis, 1e-6)
}

func TestBuild_NoUsageSample(t *testing.T) {
	records := sampleRecords()
	records.Usage = nil

	snap, err := newTestBuilder().Build(hostID, records)
	require.NoError(t, err)

	// Absent metrics leave usage at zero rather than missing.
	assert.Zero(t, snap.Nodes[0].CPUUsageMillis)
	assert.Zero(t, snap.Pods[0].CPUUsageMillis)
	assert.Zero(t, snap.Pods[0].Containers[0].CPUUsageMillis)
	assert.Zero(t, snap.Aggregate.CPUUsageMillis)

	assert.NotNil(t, snap.Usage.Nodes)
	assert.NotNil(t, snap.Usage.Pods)
	assert.Empty(t, snap.Usage.Nodes)
	assert.False(t, snap.Usage.MetricsAvailable)
	assert.Equal(t, snap.TakenAt, snap.Usage.CollectedAt)
}

func TestBuild_MalformedQuantitiesDegradeToZero(t *testing.T) {
	records := sampleRecords()
	records.Nodes[0].CPUCapacity = "not-a-number"
	records.Pods[0].Containers[0].MemoryRequest = "12XY"

	snap, err := newTestBuilder().Build(hostID, records)
	require.NoError(t, err)

	// Entities survive with zeroed fields.
	assert.Zero(t, snap.Dropped)
	assert.Equal(t, int64(0), snap.Nodes[0].CPUCapacityMillis)
	assert.Equal(t, int64(15872), snap.Nodes[0].MemoryCapacityMiB)
	assert.Equal(t, int64(0), snap.Pods[0].Containers[0].MemoryRequestMiB)
}

func TestBuild_MalformedDeclaredLimitBecomesZero(t *testing.T) {
	records := sampleRecords()
	records.Pods[0].Containers[0].CPULimit = "garbage"

	snap, err := newTestBuilder().Build(hostID, records)
	require.NoError(t, err)

	// The limit was declared, so it stays present, degraded to zero.
	limit := snap.Pods[0].Containers[0].CPULimitMillis
	require.NotNil(t, limit)
	assert.Equal(t, int64(0), *limit)
}

func TestBuild_EntityWithDelimiterIsDropped(t *testing.T) {
	records := sampleRecords()
	records.Pods = append(records.Pods, model.PodRecord{
		Name:      "bad_pod",
		Namespace: "default",
		Phase:     "Running",
	})

	snap, err := newTestBuilder().Build(hostID, records)
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Dropped)
	assert.Len(t, snap.Pods, 2)
	for _, p := range snap.Pods {
		assert.NotEqual(t, "bad_pod", p.Name)
	}
}

func TestBuild_ContainerDropDoesNotDropPod(t *testing.T) {
	records := sampleRecords()
	records.Pods[0].Containers[0].Name = "bad_name"

	snap, err := newTestBuilder().Build(hostID, records)
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Dropped)
	require.Len(t, snap.Pods, 2)
	require.Len(t, snap.Pods[0].Containers, 1)
	assert.Equal(t, "sidecar", snap.Pods[0].Containers[0].Name)

	// Totals only cover surviving containers.
	assert.Equal(t, int64(100), snap.Pods[0].CPURequestMillis)
}

func TestBuild_NamelessRecordsAreDropped(t *testing.T) {
	records := sampleRecords()
	records.Nodes = append(records.Nodes, model.NodeRecord{Status: "Ready"})
	records.Services = append(records.Services, model.ServiceRecord{Name: "orphan"})

	snap, err := newTestBuilder().Build(hostID, records)
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Dropped)
	assert.Len(t, snap.Nodes, 2)
	assert.Len(t, snap.Services, 1)
}

func TestBuild_EmptyCluster(t *testing.T) {
	snap, err := newTestBuilder().Build(hostID, &model.ClusterRecords{
		Cluster: model.ClusterInfo{Context: "empty"},
	})
	require.NoError(t, err)

	assert.Empty(t, snap.Nodes)
	assert.Empty(t, snap.Pods)
	assert.Empty(t, snap.Services)
	assert.Zero(t, snap.Aggregate.TotalPods)
	assert.Equal(t, "cluster_empty_host_vm-1_20240101000000", snap.Cluster.ID)
}

func TestBuild_ClusterContextErrors(t *testing.T) {
	b := newTestBuilder()

	_, err := b.Build(hostID, nil)
	require.Error(t, err)
	assert.True(t, kgerrors.HasCode(err, kgerrors.ErrCodeSnapshotBuild))

	_, err = b.Build(hostID, &model.ClusterRecords{})
	require.Error(t, err)
	assert.True(t, kgerrors.HasCode(err, kgerrors.ErrCodeSnapshotBuild))

	_, err = b.Build(hostID, &model.ClusterRecords{
		Cluster: model.ClusterInfo{Context: "gke_project_zone_name"},
	})
	require.Error(t, err)
	assert.True(t, kgerrors.HasCode(err, kgerrors.ErrCodeIdentityDerivation))
}

func TestBuild_DeterministicIdentifiers(t *testing.T) {
	b := newTestBuilder()

	first, err := b.Build(hostID, sampleRecords())
	require.NoError(t, err)
	second, err := b.Build(hostID, sampleRecords())
	require.NoError(t, err)

	assert.Equal(t, first.Cluster.ID, second.Cluster.ID)
	for i := range first.Nodes {
		assert.Equal(t, first.Nodes[i].ID, second.Nodes[i].ID)
	}
	for i := range first.Pods {
		assert.Equal(t, first.Pods[i].ID, second.Pods[i].ID)
	}
}

func TestParseImageRef(t *testing.T) {
	tests := []struct {
		image    string
		wantRepo string
		wantTag  string
	}{
		{"nginx:1.25", "nginx", "1.25"},
		{"registry.example.com/team/api:v2.1.0", "registry.example.com/team/api", "v2.1.0"},
		{"envoyproxy/envoy:v1.29.2", "envoyproxy/envoy", "v1.29.2"},
		{"nginx", "nginx", ""},
		{"UPPERCASE NOT A REF", "", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.image, func(t *testing.T) {
			repo, tag := parseImageRef(tt.image)
			assert.Equal(t, tt.wantRepo, repo)
			assert.Equal(t, tt.wantTag, tag)
		})
	}
}
