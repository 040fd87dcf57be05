package core

// Lifecycle 单例的启动与关闭能力。
// 实现该接口的单例在引导完成后按实例化顺序 Startup，
// 进程退出时按逆序 Shutdown；未实现的单例在两个阶段都被跳过。
type Lifecycle interface {
	Startup() error
	Shutdown() error
}
