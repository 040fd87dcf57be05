package di_test

import (
	"errors"
	"testing"

	"github.com/gocrud/engine/di"
)

type InjectTarget struct {
	Greeter Greeter  `di:""`
	Counter *Counter `di:""`
	Plain   string   // 无标签，不参与注入
}

type OptionalTarget struct {
	Greeter Greeter  `di:""`
	Counter *Counter `di:"optional"`
}

func TestInjectDependencies(t *testing.T) {
	f := di.NewFactory()
	di.Bind[Greeter](f, &EnglishGreeter{})
	di.Bind[*Counter](f, &Counter{N: 42})

	target := &InjectTarget{Plain: "keep"}
	if err := f.InjectDependencies(target); err != nil {
		t.Fatalf("InjectDependencies failed: %v", err)
	}

	if target.Greeter == nil || target.Counter == nil {
		t.Fatal("tagged fields were not injected")
	}
	if target.Counter.N != 42 {
		t.Errorf("Expected 42, got %d", target.Counter.N)
	}
	if target.Plain != "keep" {
		t.Error("untagged field was touched")
	}
}

func TestInjectMissingDependency(t *testing.T) {
	f := di.NewFactory()
	di.Bind[Greeter](f, &EnglishGreeter{})

	// Counter 未绑定：必须报告失败的字段名和未解析的类型
	err := f.InjectDependencies(&InjectTarget{})
	var injErr *di.InjectionError
	if !errors.As(err, &injErr) {
		t.Fatalf("expected InjectionError, got %v", err)
	}
	if injErr.Field != "Counter" {
		t.Errorf("error names field %q, want Counter", injErr.Field)
	}
	if injErr.Type != di.TypeOf[*Counter]() {
		t.Errorf("error names type %v, want *Counter", injErr.Type)
	}
	var unresolved *di.UnresolvedDependencyError
	if !errors.As(err, &unresolved) {
		t.Error("InjectionError should wrap the unresolved cause")
	}
}

func TestInjectOptional(t *testing.T) {
	f := di.NewFactory()
	di.Bind[Greeter](f, &EnglishGreeter{})

	target := &OptionalTarget{}
	if err := f.InjectDependencies(target); err != nil {
		t.Fatalf("optional 字段缺失不应失败: %v", err)
	}
	if target.Greeter == nil {
		t.Error("required field not injected")
	}
	if target.Counter != nil {
		t.Error("missing optional field should stay nil")
	}
}

func TestInjectRejectsNonPointer(t *testing.T) {
	f := di.NewFactory()

	if err := f.InjectDependencies(InjectTarget{}); err == nil {
		t.Error("expected error for non-pointer target")
	}
	if err := f.InjectDependencies(nil); err == nil {
		t.Error("expected error for nil target")
	}
}
