// Package host owns node graphs on one side of a client/server split.
//
// A [Host] hands out a single graph for a scope (created on first access),
// guards it with a mutex, persists it through a [store.Store] and keeps it in
// step with a peer host on the opposite side through a [Transport].
//
// # Synchronization
//
// Hosts exchange three kinds of [Message]:
//
//   - graph: a full snapshot, sent by [Host.PushUpdate]; the receiver
//     replaces its graph content with it
//   - node: a single node record, sent when a node calls
//     [nodegraph.NodeBase.PushUpdate]; the receiver applies it in place
//   - request: sent by [Host.RequestUpdate]; the receiver answers with a
//     graph snapshot
//
// Pushes of a snapshot identical to the last one sent are dropped. The hash
// of the last snapshot per peer is kept in a [cache.Cache].
//
// # Transports
//
// [MemoryTransport] connects hosts in one process. [RedisTransport] uses
// Redis pub/sub with one channel per side.
//
// # Example
//
//	tr := host.NewMemoryTransport()
//	server := host.New(host.Options{Scope: "factory", Side: nodegraph.Server, Transport: tr})
//	client := host.New(host.Options{Scope: "factory", Side: nodegraph.Client, Transport: tr})
//	go server.Run(ctx)
//	go client.Run(ctx)
//	_ = client.RequestUpdate(ctx)
package host
