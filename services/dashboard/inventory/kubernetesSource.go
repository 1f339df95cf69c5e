package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

type kubernetesSource struct {
	client kubernetes.Interface
}

// NewKubernetesSource creates a source that lists the cluster nodes
func NewKubernetesSource(client kubernetes.Interface) (*kubernetesSource, error) {
	if client == nil {
		return nil, errNilKubeClient
	}

	return &kubernetesSource{
		client: client,
	}, nil
}

// NewKubernetesClient creates a clientset from an explicit kubeconfig, the in-cluster configuration or the
// default kubeconfig, in this order
func NewKubernetesClient(kubeconfigPath string, kubeContext string) (kubernetes.Interface, error) {
	restCfg, contextName, err := buildRESTConfig(kubeconfigPath, kubeContext)
	if err != nil {
		return nil, err
	}

	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create kubernetes client: %w", err)
	}

	log.Info("kubernetes client created", "context", contextName, "host", restCfg.Host)

	return client, nil
}

func buildRESTConfig(kubeconfigPath string, kubeContext string) (*rest.Config, string, error) {
	kubeconfigPath = strings.TrimSpace(kubeconfigPath)
	kubeContext = strings.TrimSpace(kubeContext)

	if kubeconfigPath != "" {
		loadingRules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath}
		overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}

		cc := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides)
		rawCfg, err := cc.RawConfig()
		if err != nil {
			return nil, "", fmt.Errorf("load kubeconfig: %w", err)
		}

		contextName := rawCfg.CurrentContext
		if kubeContext != "" {
			contextName = kubeContext
		}

		restCfg, err := cc.ClientConfig()
		if err != nil {
			return nil, "", fmt.Errorf("build kubeconfig rest config: %w", err)
		}

		return restCfg, contextName, nil
	}

	restCfg, err := rest.InClusterConfig()
	if err == nil {
		return restCfg, "in-cluster", nil
	}

	cc := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		clientcmd.NewDefaultClientConfigLoadingRules(),
		&clientcmd.ConfigOverrides{CurrentContext: kubeContext},
	)
	restCfg, err = cc.ClientConfig()
	if err != nil {
		return nil, "", fmt.Errorf("build default rest config: %w", err)
	}

	return restCfg, kubeContext, nil
}

// Targets lists the nodes that have an internal IP, sorted by name
func (ks *kubernetesSource) Targets(ctx context.Context) ([]common.Target, error) {
	list, err := ks.client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}

	targets := make([]common.Target, 0, len(list.Items))
	for _, node := range list.Items {
		internalIP := internalIPOf(node)
		if len(internalIP) == 0 {
			log.Debug("skipping node without internal IP", "node", node.Name)
			continue
		}

		targets = append(targets, common.Target{
			Name:       node.Name,
			InternalIP: internalIP,
		})
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })

	return targets, nil
}

func internalIPOf(node corev1.Node) string {
	for _, address := range node.Status.Addresses {
		if address.Type == corev1.NodeInternalIP {
			return address.Address
		}
	}

	return ""
}

// IsInterfaceNil returns true if the value under the interface is nil
func (ks *kubernetesSource) IsInterfaceNil() bool {
	return ks == nil
}
