// Package fragship sends files and text messages over UDP with per-fragment
// acknowledgment and checksum-driven retransmission.
//
// A transfer starts with a handshake that announces the transfer kind, the
// fragment size and the fragment count. The sender then delivers one
// fragment at a time and waits for ACK (advance) or RST (resend) before the
// next one. The receiver answers every data datagram and ends the transfer
// once the announced count was accepted or the peer goes silent.
//
// # Sending
//
//	report, err := fragship.SendFile(ctx, "127.0.0.1:9090", "photo.jpg", 1024)
//	if err != nil {
//	    log.Printf("transfer %s: %v", report.Outcome, err)
//	}
//
// The fragment argument is the payload carried per datagram; the six header
// bytes are added on top of it.
//
// # Receiving
//
//	srv, err := fragship.NewServer("127.0.0.1:9090", "./downloads",
//	    fragship.WithConsole(os.Stdout),
//	    fragship.WithOnReport(func(r fragship.Report) { ... }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	// ... run until shutdown signal ...
//	_ = srv.Stop()
//
// Received files are written under the output directory with the sender's
// base name. An existing file is never overwritten: "name(1).ext" is used
// instead, then "name(2).ext" and so on. Text messages are written to the
// console writer.
//
// # Reports
//
// Every attempt produces a [Report]. Pass [WithReportDir] to persist the
// latest one as status.json and read it back with [LoadReport]; pass
// [WithJournal] to keep a line-per-event log.
//
// # Lifecycle States
//
// A [Server] can be in one of five states: [StateStopped], [StateStarting],
// [StateRunning], [StateStopping], or [StateCrashed]. Use [Server.Status] to
// query the current state and [WithStateObserver] to be notified of changes.
package fragship
