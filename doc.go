/*
Package synthex turns free-text chemical synthesis procedures into numbered,
machine-readable protocol steps by forwarding them to the IBM RXN for
Chemistry "paragraph to actions" service.

# Concept

The Engine is a thin, stateless request handler. It validates the procedure
text locally, performs exactly one outbound call per valid submission and maps
the result to an Outcome the host can display as-is. Hosts (the web UI, the
JSON API, the MCP server and the CLI under cmd/synthex) own the I/O and the
per-user session state; the Engine owns the rules.

# Outcomes

Every submission ends in exactly one of four outcomes:

  - warning: the text is empty or whitespace only; the service is not called.
  - info: the service answered with no actions.
  - success: the service answered with actions, numbered from 1 in service order.
  - error: the call failed; the message carries the failure text.

# Usage

	client, err := rxn.NewClient(rxn.DefaultConfig(domain.Credential(os.Getenv("SYNTHEX_API_KEY"))))
	if err != nil {
		log.Fatal(err)
	}

	engine, err := synthex.New(synthex.WithExtractor(client))
	if err != nil {
		log.Fatal(err)
	}

	outcome := engine.Submit(ctx, "The mixture was stirred for 1 h.", "")
	fmt.Println(outcome.Message)
	for _, step := range outcome.Steps {
		fmt.Printf("%d. %s\n", step.Number, step.Text)
	}

# Observability

Register domain.LifecycleHooks with WithLifecycleHooks to observe every
outbound call. The observability package ships Prometheus collectors built on
these hooks.
*/
package synthex
