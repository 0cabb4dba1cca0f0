package observability

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopProvisionHooks{}
	p.OnProvisionQueued(ctx, OpUse, "ts-loader", "5.4.4", 0)
	p.OnProvisionStart(ctx, OpUse, "ts-loader", "5.4.4")
	p.OnProvisionComplete(ctx, OpUse, "ts-loader", "5.4.4", true, time.Second, nil)

	c := NoopComposeHooks{}
	c.OnPackChecked(ctx, "style", true, nil)
	c.OnPackBuilt(ctx, "style", time.Second, nil)
	c.OnComposeComplete(ctx, []string{"base", "project"}, time.Second, nil)
}

func TestMultiProvisionHooks(t *testing.T) {
	ctx := context.Background()
	a, b := &Recorder{}, &Recorder{}
	m := MultiProvisionHooks{a, nil, b}

	m.OnProvisionQueued(ctx, OpLocate, "vue-loader", "", 2)
	m.OnProvisionStart(ctx, OpLocate, "vue-loader", "")
	m.OnProvisionComplete(ctx, OpLocate, "vue-loader", "", false, time.Millisecond, errors.New("x"))

	want := []string{
		"queued locate vue-loader",
		"start locate vue-loader",
		"done locate vue-loader installed=false err=true",
	}
	for _, r := range []*Recorder{a, b} {
		if got := r.Events(); !reflect.DeepEqual(got, want) {
			t.Errorf("Events() = %v, want %v", got, want)
		}
	}
}

func TestMultiComposeHooks(t *testing.T) {
	ctx := context.Background()
	r := &Recorder{}
	m := MultiComposeHooks{NoopComposeHooks{}, r}

	m.OnPackChecked(ctx, "vue", false, nil)
	m.OnPackBuilt(ctx, "markup", 0, nil)
	m.OnComposeComplete(ctx, []string{"base"}, 0, nil)

	want := []string{
		"check vue applicable=false err=false",
		"build markup err=false",
		"compose [base] err=false",
	}
	if got := r.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("Events() = %v, want %v", got, want)
	}
}
