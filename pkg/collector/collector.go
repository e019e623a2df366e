// Package collector reads the live state of one Kubernetes cluster through
// the API server and flattens it into transport-friendly records. A Collector
// is bound to a single kubeconfig context; the runner creates one per context
// through a Factory.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
	"k8s.io/utils/ptr"

	kgerrors "github.com/kubegraph/kubegraph/pkg/errors"
	"github.com/kubegraph/kubegraph/pkg/model"
)

const roleLabelPrefix = "node-role.kubernetes.io/"

// Collector reads cluster state for one kubeconfig context.
type Collector struct {
	// Client is the core Kubernetes clientset.
	Client kubernetes.Interface
	// Metrics is the metrics.k8s.io clientset. Nil disables usage
	// collection entirely.
	Metrics metricsclient.Interface
	// Context is the kubeconfig context this collector is bound to.
	Context string
	// Server is the API server URL, recorded on the cluster info.
	Server string
	// Namespace restricts pod and service listing. Empty means all
	// namespaces.
	Namespace string
	// Timeout bounds a single Collect call. Zero means no extra bound
	// beyond the caller's context.
	Timeout time.Duration

	Logger *slog.Logger
}

// Collect lists nodes, pods and services and samples resource usage from the
// metrics API. Node, pod and service listing failures abort the collection;
// a missing or failing metrics API degrades to a nil usage record.
func (c *Collector) Collect(ctx context.Context) (*model.ClusterRecords, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	records := &model.ClusterRecords{
		Cluster: model.ClusterInfo{
			Context: c.Context,
			Server:  c.Server,
		},
	}

	if info, err := c.Client.Discovery().ServerVersion(); err != nil {
		logger.Warn("server version unavailable", "context", c.Context, "error", err)
	} else {
		records.Cluster.Version = info.GitVersion
	}

	nodes, err := c.Client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, kgerrors.Wrapf(kgerrors.ErrCodeCollect, err, "listing nodes in context %q", c.Context)
	}
	for _, node := range nodes.Items {
		records.Nodes = append(records.Nodes, nodeRecord(node))
	}

	pods, err := c.Client.CoreV1().Pods(c.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, kgerrors.Wrapf(kgerrors.ErrCodeCollect, err, "listing pods in context %q", c.Context)
	}
	for _, pod := range pods.Items {
		records.Pods = append(records.Pods, podRecord(pod))
	}

	services, err := c.Client.CoreV1().Services(c.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, kgerrors.Wrapf(kgerrors.ErrCodeCollect, err, "listing services in context %q", c.Context)
	}
	for _, svc := range services.Items {
		records.Services = append(records.Services, serviceRecord(svc))
	}

	records.Usage = c.collectUsage(ctx, logger)

	return records, nil
}

// collectUsage samples node and pod usage from the metrics API. It returns
// nil when no metrics client is configured or when both list calls fail,
// which downstream treats as "metrics unavailable this cycle".
func (c *Collector) collectUsage(ctx context.Context, logger *slog.Logger) *model.UsageRecord {
	if c.Metrics == nil {
		return nil
	}

	record := &model.UsageRecord{CollectedAt: time.Now().UTC()}
	nodesFailed := false
	podsFailed := false

	nodeMetrics, err := c.Metrics.MetricsV1beta1().NodeMetricses().List(ctx, metav1.ListOptions{})
	if err != nil {
		logger.Warn("node metrics unavailable", "context", c.Context, "error", err)
		nodesFailed = true
	} else {
		for _, item := range nodeMetrics.Items {
			record.Nodes = append(record.Nodes, model.NodeUsageRecord{
				Name:   item.Name,
				CPU:    item.Usage.Cpu().String(),
				Memory: item.Usage.Memory().String(),
			})
		}
	}

	podMetrics, err := c.Metrics.MetricsV1beta1().PodMetricses(c.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		logger.Warn("pod metrics unavailable", "context", c.Context, "error", err)
		podsFailed = true
	} else {
		for _, item := range podMetrics.Items {
			usage := model.PodUsageRecord{
				Name:      item.Name,
				Namespace: item.Namespace,
			}
			for _, container := range item.Containers {
				usage.Containers = append(usage.Containers, model.ContainerUsageRecord{
					Name:   container.Name,
					CPU:    container.Usage.Cpu().String(),
					Memory: container.Usage.Memory().String(),
				})
			}
			record.Pods = append(record.Pods, usage)
		}
	}

	if nodesFailed && podsFailed {
		return nil
	}
	return record
}

func nodeRecord(node corev1.Node) model.NodeRecord {
	record := model.NodeRecord{
		Name:             node.Name,
		Status:           nodeStatus(node),
		Roles:            nodeRoles(node.Labels),
		Version:          node.Status.NodeInfo.KubeletVersion,
		OSImage:          node.Status.NodeInfo.OSImage,
		KernelVersion:    node.Status.NodeInfo.KernelVersion,
		ContainerRuntime: node.Status.NodeInfo.ContainerRuntimeVersion,
		CreatedAt:        node.CreationTimestamp.Time.UTC(),
	}

	for _, addr := range node.Status.Addresses {
		switch addr.Type {
		case corev1.NodeInternalIP:
			if record.InternalIP == "" {
				record.InternalIP = addr.Address
			}
		case corev1.NodeExternalIP:
			if record.ExternalIP == nil {
				record.ExternalIP = ptr.To(addr.Address)
			}
		}
	}

	record.CPUCapacity = quantityString(node.Status.Capacity, corev1.ResourceCPU)
	record.MemoryCapacity = quantityString(node.Status.Capacity, corev1.ResourceMemory)
	record.CPUAllocatable = quantityString(node.Status.Allocatable, corev1.ResourceCPU)
	record.MemoryAllocatable = quantityString(node.Status.Allocatable, corev1.ResourceMemory)

	return record
}

// nodeStatus reduces the Ready condition to Ready, NotReady or Unknown.
func nodeStatus(node corev1.Node) string {
	for _, cond := range node.Status.Conditions {
		if cond.Type != corev1.NodeReady {
			continue
		}
		switch cond.Status {
		case corev1.ConditionTrue:
			return "Ready"
		case corev1.ConditionFalse:
			return "NotReady"
		default:
			return "Unknown"
		}
	}
	return "Unknown"
}

func nodeRoles(labels map[string]string) []string {
	var roles []string
	for key := range labels {
		if role, ok := strings.CutPrefix(key, roleLabelPrefix); ok && role != "" {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	return roles
}

func podRecord(pod corev1.Pod) model.PodRecord {
	statuses := make(map[string]corev1.ContainerStatus, len(pod.Status.ContainerStatuses))
	ready := 0
	var restarts int32
	for _, status := range pod.Status.ContainerStatuses {
		statuses[status.Name] = status
		if status.Ready {
			ready++
		}
		restarts += status.RestartCount
	}

	record := model.PodRecord{
		Name:      pod.Name,
		Namespace: pod.Namespace,
		Phase:     string(pod.Status.Phase),
		Ready:     fmt.Sprintf("%d/%d", ready, len(pod.Spec.Containers)),
		Restarts:  restarts,
		IP:        pod.Status.PodIP,
		Node:      pod.Spec.NodeName,
		CreatedAt: pod.CreationTimestamp.Time.UTC(),
	}

	for _, container := range pod.Spec.Containers {
		record.Containers = append(record.Containers, containerRecord(container, statuses))
	}

	return record
}

// containerRecord joins one spec container with its status entry. Containers
// without a status yet, a pod still scheduling for instance, report state
// "unknown".
func containerRecord(container corev1.Container, statuses map[string]corev1.ContainerStatus) model.ContainerRecord {
	record := model.ContainerRecord{
		Name:          container.Name,
		Image:         container.Image,
		State:         "unknown",
		CPURequest:    quantityString(container.Resources.Requests, corev1.ResourceCPU),
		MemoryRequest: quantityString(container.Resources.Requests, corev1.ResourceMemory),
		CPULimit:      quantityString(container.Resources.Limits, corev1.ResourceCPU),
		MemoryLimit:   quantityString(container.Resources.Limits, corev1.ResourceMemory),
	}

	if status, ok := statuses[container.Name]; ok {
		record.Ready = status.Ready
		record.RestartCount = status.RestartCount
		record.State = containerState(status)
	}

	return record
}

// containerState renders the container state as a compact descriptor:
// "running", "waiting:<reason>", "terminated:<reason>" or "unknown".
func containerState(status corev1.ContainerStatus) string {
	switch {
	case status.State.Running != nil:
		return "running"
	case status.State.Waiting != nil:
		if reason := status.State.Waiting.Reason; reason != "" {
			return "waiting:" + reason
		}
		return "waiting"
	case status.State.Terminated != nil:
		if reason := status.State.Terminated.Reason; reason != "" {
			return "terminated:" + reason
		}
		return "terminated"
	default:
		return "unknown"
	}
}

func serviceRecord(svc corev1.Service) model.ServiceRecord {
	record := model.ServiceRecord{
		Name:      svc.Name,
		Namespace: svc.Namespace,
		Type:      string(svc.Spec.Type),
		ClusterIP: svc.Spec.ClusterIP,
		Selector:  svc.Spec.Selector,
		CreatedAt: svc.CreationTimestamp.Time.UTC(),
	}

	record.ExternalIPs = append(record.ExternalIPs, svc.Spec.ExternalIPs...)
	for _, ingress := range svc.Status.LoadBalancer.Ingress {
		if ingress.IP != "" {
			record.ExternalIPs = append(record.ExternalIPs, ingress.IP)
		}
	}

	for _, port := range svc.Spec.Ports {
		record.Ports = append(record.Ports, model.ServicePort{
			Name:       port.Name,
			Port:       port.Port,
			NodePort:   port.NodePort,
			Protocol:   string(port.Protocol),
			TargetPort: port.TargetPort.String(),
		})
	}

	return record
}

// quantityString renders one resource from a ResourceList, or "" when the
// resource is not declared. The empty string is how downstream distinguishes
// "no limit set" from an explicit zero.
func quantityString(list corev1.ResourceList, name corev1.ResourceName) string {
	q, ok := list[name]
	if !ok {
		return ""
	}
	return q.String()
}
