/*
Package ports defines the driven and driving ports of Arbor.

The growth engine itself performs no I/O. Everything that reads or writes
recorded search trees goes through these interfaces so storage backends and
transports can be swapped independently.

# Key Interfaces

  - KeyValueStore: byte-oriented storage of snapshots, patches and iteration stages (Redis or Memory).
  - DistributedLocker: serializes one-off maintenance jobs such as legacy migrations across replicas.
  - SessionReader: read-side queries over recorded game sessions, consumed by HTTP and MCP.
  - TreeProcessor: processing and caching of client-submitted trees.
*/
package ports
