package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kat-co/vala"

	"github.com/trezcool/studytrack/core"
)

const defaultTimeout = 30 * time.Second

type Options struct {
	SMS      Sender
	Email    Sender
	WhatsApp Sender
	Renderer *Renderer
	Logger   core.Logger
	Timeout  time.Duration // background dispatch deadline
	Observe  func(Report)  // called once per Notify; defaults to a log line
}

// Dispatcher fans a rendered event out to every channel the guardian can be reached on.
type Dispatcher struct {
	sms, email, whatsapp Sender
	renderer             *Renderer
	logger               core.Logger
	timeout              time.Duration
	observe              func(Report)

	inflight sync.WaitGroup
}

func NewDispatcher(opts Options) (*Dispatcher, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(opts.SMS, "SMS"),
		vala.IsNotNil(opts.Email, "Email"),
		vala.IsNotNil(opts.WhatsApp, "WhatsApp"),
		vala.IsNotNil(opts.Renderer, "Renderer"),
		vala.IsNotNil(opts.Logger, "Logger"),
	).Check()
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		sms:      opts.SMS,
		email:    opts.Email,
		whatsapp: opts.WhatsApp,
		renderer: opts.Renderer,
		logger:   opts.Logger,
		timeout:  opts.Timeout,
		observe:  opts.Observe,
	}
	if d.timeout <= 0 {
		d.timeout = defaultTimeout
	}
	if d.observe == nil {
		d.observe = d.logReport
	}
	return d, nil
}

// Notify renders ev and sends it over every applicable channel concurrently, waiting for all of them.
// A recipient without phone and email is skipped without invoking any driver.
func (d *Dispatcher) Notify(ctx context.Context, rcpt Recipient, ev Event) Report {
	rep := Report{StudentID: rcpt.StudentID}
	if ev != nil {
		rep.Event = ev.Kind()
	}

	if !rcpt.HasContact() {
		rep.Skipped = true
		d.logger.Info(fmt.Sprintf("no guardian contact for student %q, skipping %s notification", rcpt.StudentID, rep.Event))
		d.observe(rep)
		return rep
	}

	content, err := d.renderer.Render(ev)
	if err != nil {
		rep.Err = err
		d.logger.Error(fmt.Sprintf("rendering %s notification: %v", rep.Event, err), err)
		d.observe(rep)
		return rep
	}
	rep.Subject = content.Subject

	type job struct {
		sender Sender
		to     string
	}
	var jobs []job
	if rcpt.Phone != "" {
		jobs = append(jobs, job{d.sms, rcpt.Phone}, job{d.whatsapp, rcpt.Phone})
	}
	if rcpt.Email != "" {
		jobs = append(jobs, job{d.email, rcpt.Email})
	}

	results := make([]Result, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			results[i] = d.send(ctx, j.sender, j.to, content)
		}(i, j)
	}
	wg.Wait()

	rep.Results = results
	d.observe(rep)
	return rep
}

// send shields the join from a misbehaving Sender.
func (d *Dispatcher) send(ctx context.Context, s Sender, to string, content Content) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(fmt.Sprintf("%s sender panicked: %v", s.Channel(), r))
			res = Result{Channel: s.Channel(), Recipient: to, Err: fmt.Errorf("sender panic: %v", r)}
		}
	}()
	return s.Send(ctx, to, content)
}

// Go dispatches in the background, detached from any request, bounded by the configured timeout.
func (d *Dispatcher) Go(rcpt Recipient, ev Event) {
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.Notify(ctx, rcpt, ev)
	}()
}

// Wait blocks until every background dispatch started with Go has finished.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

func (d *Dispatcher) logReport(rep Report) {
	if rep.Skipped || rep.Err != nil {
		return
	}
	summary := make(map[string]interface{}, len(rep.Results)+2)
	summary["student"] = rep.StudentID
	summary["event"] = rep.Event
	for _, res := range rep.Results {
		summary[string(res.Channel)] = res.Status
	}
	d.logger.Info(fmt.Sprintf("%s notification dispatched to %d channel(s), %d delivered", rep.Event, len(rep.Results), rep.Delivered()), summary)
}
