package nodes

import (
	"context"
	"fmt"
	"net"
	"strconv"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

func InClusterClient() (kubernetes.Interface, error) {
	config, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("in-cluster config: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}
	return clientset, nil
}

// DiscoverAgents returns the ip:port of every running agent pod matching the
// label selector, one per pod IP.
func DiscoverAgents(ctx context.Context, clientset kubernetes.Interface, namespace, selector string, port int) ([]string, error) {
	pods, err := clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
	})
	if err != nil {
		return nil, fmt.Errorf("list agent pods: %w", err)
	}

	addrs := make([]string, 0, len(pods.Items))
	for _, p := range pods.Items {
		if p.Status.Phase != v1.PodRunning || p.Status.PodIP == "" {
			log.WithFields(log.Fields{
				"pod":   p.Name,
				"phase": p.Status.Phase,
			}).Debug("skipping agent pod that is not running")
			continue
		}
		addr := net.JoinHostPort(p.Status.PodIP, strconv.Itoa(port))
		if !slices.Contains(addrs, addr) {
			addrs = append(addrs, addr)
		}
	}

	log.WithFields(log.Fields{
		"namespace": namespace,
		"selector":  selector,
		"agents":    addrs,
	}).Info("discovered agents")

	return addrs, nil
}
