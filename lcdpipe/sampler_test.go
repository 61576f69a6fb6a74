package lcdpipe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewSamplerValidation(t *testing.T) {
	if _, err := NewSampler(0, 0, nil); err == nil {
		t.Error("zero period must be rejected")
	}
}

func TestSamplerLatestCopyOut(t *testing.T) {
	s, err := NewSampler(5*time.Millisecond, time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	v := 1.0
	s.Register("vbat", func() (float64, error) { return v, nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for {
		if smp, ok := s.Latest("vbat"); ok {
			if smp.Value != 1.0 {
				t.Fatalf("sample value = %v", smp.Value)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no sample arrived")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSamplerStaleSampleIsUnknown(t *testing.T) {
	s, err := NewSampler(time.Millisecond, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Register("temp", func() (float64, error) { return 42, nil })
	s.sampleAll()
	if _, ok := s.Latest("temp"); !ok {
		t.Fatal("fresh sample reported stale")
	}
	time.Sleep(25 * time.Millisecond)
	if _, ok := s.Latest("temp"); ok {
		t.Error("aged sample must be reported unknown")
	}
}

func TestSamplerReadFaultKeepsPrevious(t *testing.T) {
	tel := NewTelemetry()
	s, err := NewSampler(time.Millisecond, time.Minute, tel)
	if err != nil {
		t.Fatal(err)
	}
	fail := false
	s.Register("temp", func() (float64, error) {
		if fail {
			return 0, errors.New("bus glitch")
		}
		return 21.5, nil
	})
	s.sampleAll()
	fail = true
	s.sampleAll()

	smp, ok := s.Latest("temp")
	if !ok || smp.Value != 21.5 {
		t.Errorf("previous sample lost: %+v ok=%v", smp, ok)
	}
	if got := tel.Snapshot().SamplerFaults; got != 1 {
		t.Errorf("sampler faults = %d, want 1", got)
	}
}

func TestSamplerUnknownChannel(t *testing.T) {
	s, _ := NewSampler(time.Second, 0, nil)
	if _, ok := s.Latest("nope"); ok {
		t.Error("unknown channel must report not-ok")
	}
}
