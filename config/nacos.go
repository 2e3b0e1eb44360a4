package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/clients"
	"github.com/nacos-group/nacos-sdk-go/common/constant"
	"github.com/nacos-group/nacos-sdk-go/vo"
)

const nacosDSNEnv = "NACOSDSN"

type nacosDSN struct {
	Server    string
	Port      uint64
	Namespace string
	Username  string
	Password  string
	Group     string
	DataID    string
}

// parseNacosDSN DSN 示例: localhost:8848?namespace=default&username=nacos&password=1234&group=QA&dataId=certportal
func parseNacosDSN(dsn string) (nacosDSN, error) {
	parts := strings.SplitN(dsn, "?", 2)
	params := url.Values{}
	if len(parts) == 2 {
		var err error
		params, err = url.ParseQuery(parts[1])
		if err != nil {
			return nacosDSN{}, fmt.Errorf("parse %s query: %w", nacosDSNEnv, err)
		}
	}

	out := nacosDSN{Port: 8848}
	hostParts := strings.Split(parts[0], ":")
	out.Server = hostParts[0]
	if out.Server == "" {
		return nacosDSN{}, fmt.Errorf("%s: missing server address", nacosDSNEnv)
	}
	if len(hostParts) > 1 {
		p, err := strconv.ParseUint(hostParts[1], 10, 16)
		if err != nil {
			return nacosDSN{}, fmt.Errorf("%s: invalid port %q", nacosDSNEnv, hostParts[1])
		}
		out.Port = p
	}

	out.Namespace = params.Get("namespace")
	if out.Namespace == "" {
		out.Namespace = "public"
	}
	out.Username = params.Get("username")
	out.Password = params.Get("password")
	out.Group = params.Get("group")
	if out.Group == "" {
		out.Group = "DEFAULT_GROUP"
	}
	out.DataID = params.Get("dataId")
	if out.DataID == "" {
		return nacosDSN{}, fmt.Errorf("%s: dataId is required", nacosDSNEnv)
	}
	return out, nil
}

// getConfigFromNacos 从 nacos 拉取一次 yaml 配置
func getConfigFromNacos(dsn string) (string, error) {
	d, err := parseNacosDSN(dsn)
	if err != nil {
		return "", err
	}

	serverConfigs := []constant.ServerConfig{
		{
			IpAddr: d.Server,
			Port:   d.Port,
			Scheme: "http",
		},
	}
	clientConfig := constant.ClientConfig{
		NamespaceId:         d.Namespace,
		Username:            d.Username,
		Password:            d.Password,
		TimeoutMs:           5000,
		NotLoadCacheAtStart: true,
		CacheDir:            "./data/configCache",
	}

	configClient, err := clients.CreateConfigClient(map[string]interface{}{
		"serverConfigs": serverConfigs,
		"clientConfig":  clientConfig,
	})
	if err != nil {
		return "", fmt.Errorf("create nacos client: %w", err)
	}

	content, err := configClient.GetConfig(vo.ConfigParam{
		DataId: d.DataID,
		Group:  d.Group,
	})
	if err != nil {
		return "", fmt.Errorf("fetch nacos config %s/%s: %w", d.Group, d.DataID, err)
	}
	if content == "" {
		return "", errors.New("nacos returned empty config")
	}
	return content, nil
}
