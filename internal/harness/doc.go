// Package harness runs dispatch scenarios against the real engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: firebolt_hits
//	description: "A ranged attack plays source then target"
//	catalog: ../catalog          # CUE catalog dir, relative to the scenario
//	scene: ../scenes/arena.yaml  # host scene fixture, relative to the scenario
//	config:                      # overrides on config.Default()
//	  play_on_miss: false
//	steps:
//	  - action:
//	      system: generic
//	      user_id: u1
//	      message_id: msg-1
//	      scene_id: arena
//	      payload: { origin: bolt-1, item_name: Fire Bolt, source: hero, all_targets: [orc] }
//	    expect:
//	      outcome: success
//	      rule: exact_name
//	      phases: [source, target]
//	  - advance: 500ms
//	assertions:
//	  - type: batch_count
//	    count: 1
//	  - type: guard_state
//	    origin: bolt-1
//	    state: played
//
// A step carries exactly one of action, template, removal, scene_unloaded,
// message_deleted or advance.
//
// # Assertion Types
//
//   - batch_count: number of batches the renderer received
//   - sound_count: number of item sounds the renderer received
//   - guard_state: playback state of an origin on the scenario scene
//   - pending: deferred template waits and scheduled continuations
//   - dispatch_log: number of logged dispatches, optionally by outcome
//   - placement: phase/file/location of one placement of one batch
//
// # Deterministic Testing
//
// Every scenario runs with sequential dispatch ids ("d-1", "d-2", ...), a
// manual scheduler that only moves on advance steps, a fixed random source
// and a fresh in-memory dispatch log. The same scenario produces the same
// trace on every run, which is what golden comparison relies on.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/firebolt.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
