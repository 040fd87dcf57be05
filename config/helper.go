package config

// Load 加载并绑定指定节的配置到结构体 T。
// section 为空时从根节点绑定整个配置
func Load[T any](cfg Configuration, section string) (T, error) {
	var t T
	err := cfg.Bind(section, &t)
	return t, err
}
