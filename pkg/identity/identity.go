// Package identity derives stable graph identifiers from entity natural keys.
// Derivation is deterministic: the same inputs always produce the same
// identifier, across processes and across syncs.
package identity

import (
	"strings"
	"time"

	kgerrors "github.com/kubegraph/kubegraph/pkg/errors"
)

// Delimiter joins identifier fields. Natural-key fields containing it are
// rejected so two different key tuples can never collide.
const Delimiter = "_"

// HostTimestampLayout formats the first-seen timestamp embedded in host
// identifiers. Digits only, so the delimiter stays unambiguous.
const HostTimestampLayout = "20060102150405"

// ForHost derives the identifier of a host machine from its name and the
// timestamp at which this process first saw it.
func ForHost(name string, firstSeen time.Time) (string, error) {
	if err := validateKeyField("host name", name); err != nil {
		return "", err
	}
	return join("host", name, firstSeen.UTC().Format(HostTimestampLayout)), nil
}

// ForCluster derives the identifier of a cluster from its kubeconfig context
// name and the identifier of the host observing it.
func ForCluster(contextName, hostID string) (string, error) {
	if err := validateKeyField("cluster context", contextName); err != nil {
		return "", err
	}
	if err := validateParentID("host id", hostID); err != nil {
		return "", err
	}
	return join("cluster", contextName, hostID), nil
}

// ForNode derives the identifier of a worker node within a cluster.
func ForNode(name, clusterID string) (string, error) {
	if err := validateKeyField("node name", name); err != nil {
		return "", err
	}
	if err := validateParentID("cluster id", clusterID); err != nil {
		return "", err
	}
	return join("node", name, clusterID), nil
}

// ForPod derives the identifier of a pod within a cluster.
func ForPod(name, namespace, clusterID string) (string, error) {
	if err := validateKeyField("pod name", name); err != nil {
		return "", err
	}
	if err := validateKeyField("pod namespace", namespace); err != nil {
		return "", err
	}
	if err := validateParentID("cluster id", clusterID); err != nil {
		return "", err
	}
	return join("pod", name, namespace, clusterID), nil
}

// ForContainer derives the identifier of a container within a pod.
func ForContainer(name, podID string) (string, error) {
	if err := validateKeyField("container name", name); err != nil {
		return "", err
	}
	if err := validateParentID("pod id", podID); err != nil {
		return "", err
	}
	return join("container", name, podID), nil
}

// ForService derives the identifier of a service within a cluster.
func ForService(name, namespace, clusterID string) (string, error) {
	if err := validateKeyField("service name", name); err != nil {
		return "", err
	}
	if err := validateKeyField("service namespace", namespace); err != nil {
		return "", err
	}
	if err := validateParentID("cluster id", clusterID); err != nil {
		return "", err
	}
	return join("service", name, namespace, clusterID), nil
}

// validateKeyField rejects natural-key fields that are empty or contain the
// delimiter. Composed parent identifiers legitimately contain the delimiter
// and are checked with validateParentID instead.
func validateKeyField(field, value string) error {
	if value == "" {
		return kgerrors.Newf(kgerrors.ErrCodeIdentityDerivation, "%s is empty", field)
	}
	if strings.Contains(value, Delimiter) {
		return kgerrors.Newf(kgerrors.ErrCodeIdentityDerivation,
			"%s %q contains identifier delimiter %q", field, value, Delimiter)
	}
	return nil
}

func validateParentID(field, value string) error {
	if value == "" {
		return kgerrors.Newf(kgerrors.ErrCodeIdentityDerivation, "%s is empty", field)
	}
	return nil
}

func join(parts ...string) string {
	return strings.Join(parts, Delimiter)
}
