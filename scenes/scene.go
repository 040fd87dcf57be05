package scenes

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scene 场景清单。描述一个可整体装载/卸载的内容单元：
// 资源路径与实体声明的具体含义由宿主解释
type Scene struct {
	Name       string         `yaml:"name"`
	Assets     []string       `yaml:"assets"`
	Entities   []Entity       `yaml:"entities"`
	Properties map[string]any `yaml:"properties"`
}

// Entity 场景中的一个实体声明
type Entity struct {
	Type       string         `yaml:"type"`
	Name       string         `yaml:"name"`
	Properties map[string]any `yaml:"properties"`
}

// ReadManifest 从文件读取并解析场景清单
func ReadManifest(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene manifest %s: %w", path, err)
	}

	scene := &Scene{}
	if err := yaml.Unmarshal(data, scene); err != nil {
		return nil, fmt.Errorf("failed to parse scene manifest %s: %w", path, err)
	}

	return scene, nil
}
