package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

const chromeImage = "browserless/chrome:latest"

// ContainerLauncher runs one Chrome container per automation session and
// connects to it over CDP. This is the self-hosted production mode.
type ContainerLauncher struct {
	runtime *Runtime
	client  *client.Client
}

// NewContainerLauncher creates a docker-backed launcher.
func NewContainerLauncher(runtime *Runtime) (*ContainerLauncher, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &ContainerLauncher{
		runtime: runtime,
		client:  cli,
	}, nil
}

// EnsureImage pulls the Chrome image if it is not present locally.
func (l *ContainerLauncher) EnsureImage(ctx context.Context) error {
	images, err := l.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == chromeImage {
				return nil
			}
		}
	}

	reader, err := l.client.ImagePull(ctx, chromeImage, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

// Launch creates and starts a Chrome container, waits for it to accept
// CDP connections, and attaches Playwright to it.
func (l *ContainerLauncher) Launch(ctx context.Context, sessionID string) (*Instance, error) {
	containerConfig := &container.Config{
		Image: chromeImage,
		Labels: map[string]string{
			"session-id": sessionID,
			"managed-by": "courtbot",
		},
		Env: []string{
			"CONNECTION_TIMEOUT=-1",
			"MAX_CONCURRENT_SESSIONS=1",
			"PREBOOT_CHROME=true",
			"KEEP_ALIVE=true",
		},
		ExposedPorts: nat.PortSet{
			"3000/tcp": struct{}{},
		},
	}

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			"3000/tcp": []nat.PortBinding{
				{HostIP: "0.0.0.0", HostPort: "0"},
			},
		},
		AutoRemove: false,
	}

	name := fmt.Sprintf("courtbot-%s", shortID(sessionID))
	resp, err := l.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	if err := l.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	inspect, err := l.client.ContainerInspect(ctx, resp.ID)
	if err != nil {
		l.stop(context.Background(), resp.ID)
		return nil, fmt.Errorf("failed to inspect container: %w", err)
	}

	bindings := inspect.NetworkSettings.Ports["3000/tcp"]
	if len(bindings) == 0 {
		l.stop(context.Background(), resp.ID)
		return nil, fmt.Errorf("container exposed no CDP port")
	}
	port := bindings[0].HostPort

	if err := l.waitForBrowserReady(port); err != nil {
		l.stop(context.Background(), resp.ID)
		return nil, fmt.Errorf("browser failed to become ready: %w", err)
	}

	b, err := l.runtime.pw.Chromium.ConnectOverCDP(fmt.Sprintf("ws://localhost:%s", port))
	if err != nil {
		l.stop(context.Background(), resp.ID)
		return nil, fmt.Errorf("failed to connect to container browser: %w", err)
	}

	containerID := resp.ID
	return &Instance{
		Browser: b,
		release: func(ctx context.Context) error {
			return l.stop(ctx, containerID)
		},
	}, nil
}

func (l *ContainerLauncher) stop(ctx context.Context, containerID string) error {
	timeout := 10
	if err := l.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	if err := l.client.ContainerRemove(ctx, containerID, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// Close releases the docker client.
func (l *ContainerLauncher) Close() error {
	return l.client.Close()
}

// waitForBrowserReady polls the container's /json/version endpoint until
// Chrome accepts connections.
func (l *ContainerLauncher) waitForBrowserReady(port string) error {
	url := fmt.Sprintf("http://localhost:%s/json/version", port)
	maxRetries := 20

	for i := 0; i < maxRetries; i++ {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				// Give the websocket listener a moment to come up too.
				time.Sleep(500 * time.Millisecond)
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}

	return fmt.Errorf("browser did not become ready after %d retries", maxRetries)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
