package collector

import (
	"fmt"
	"sort"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
)

// BuildClients creates the core and metrics clientsets for one kubeconfig
// context.
//
// An empty kubeconfig path uses automatic discovery: the KUBECONFIG
// environment variable, then ~/.kube/config. An empty context name uses the
// kubeconfig's current context.
func BuildClients(kubeconfig, contextName string) (kubernetes.Interface, metricsclient.Interface, *rest.Config, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}

	overrides := &clientcmd.ConfigOverrides{}
	if contextName != "" {
		overrides.CurrentContext = contextName
	}

	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build kube config for context %q: %w", contextName, err)
	}

	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	metrics, err := metricsclient.NewForConfig(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create metrics client: %w", err)
	}

	return client, metrics, cfg, nil
}

// Contexts returns the kubeconfig's current context name and the sorted list
// of all context names it defines.
func Contexts(kubeconfig string) (string, []string, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}

	raw, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{}).RawConfig()
	if err != nil {
		return "", nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	names := make([]string, 0, len(raw.Contexts))
	for name := range raw.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)

	return raw.CurrentContext, names, nil
}
