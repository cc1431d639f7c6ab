package memgraph

var indexQueries = []string{
	"CREATE INDEX ON :DialogNode(id);",
	"CREATE INDEX ON :DialogNode(graph_id);",
}

const (
	dropAllQuery = `MATCH (n:DialogNode) DETACH DELETE n`

	deleteGraphQuery = `MATCH (n:DialogNode {graph_id: $graph_id}) DETACH DELETE n`

	createNodesQuery = `
		UNWIND $nodes AS row
		CREATE (:DialogNode {
			id: row.id,
			graph_id: $graph_id,
			seq: row.seq,
			kind: row.kind,
			pos_x: row.pos_x,
			pos_y: row.pos_y,
			data: row.data
		})
	`

	createEdgesQuery = `
		UNWIND $edges AS row
		MATCH (a:DialogNode {id: row.from, graph_id: $graph_id})
		MATCH (b:DialogNode {id: row.to, graph_id: $graph_id})
		CREATE (a)-[:CHILD {id: row.id, graph_id: $graph_id, seq: row.seq, order: row.order}]->(b)
	`

	addNodeQuery = `
		OPTIONAL MATCH (m:DialogNode {graph_id: $graph_id})
		WITH coalesce(max(m.seq), -1) + 1 AS seq
		CREATE (n:DialogNode {
			id: $id,
			graph_id: $graph_id,
			seq: seq,
			kind: $kind,
			pos_x: $pos_x,
			pos_y: $pos_y,
			data: $data
		})
		RETURN n.id AS id
	`

	nodeFields = `n.id AS id, n.kind AS kind, n.pos_x AS pos_x, n.pos_y AS pos_y, n.data AS data`

	getNodeQuery = `MATCH (n:DialogNode {id: $id}) RETURN ` + nodeFields

	listNodesQuery = `MATCH (n:DialogNode {graph_id: $graph_id}) RETURN ` + nodeFields + ` ORDER BY n.seq`

	updateNodeQuery = `
		MATCH (n:DialogNode {id: $id})
		SET n.kind = $kind, n.pos_x = $pos_x, n.pos_y = $pos_y, n.data = $data
		RETURN n.id AS id
	`

	deleteNodeQuery = `MATCH (n:DialogNode {id: $id}) DETACH DELETE n`

	addEdgeQuery = `
		MATCH (a:DialogNode {id: $from, graph_id: $graph_id})
		MATCH (b:DialogNode {id: $to, graph_id: $graph_id})
		CREATE (a)-[r:CHILD {id: $id, graph_id: $graph_id, seq: $seq, order: $order}]->(b)
		RETURN r.id AS id
	`

	edgeFields = `r.id AS id, a.id AS from, b.id AS to, r.order AS order, r.graph_id AS graph_id`

	getEdgeQuery = `MATCH (a:DialogNode)-[r:CHILD {id: $id}]->(b:DialogNode) RETURN ` + edgeFields

	listEdgesQuery = `MATCH (a:DialogNode)-[r:CHILD {graph_id: $graph_id}]->(b:DialogNode) RETURN ` + edgeFields + ` ORDER BY r.seq`

	updateEdgeQuery = `
		MATCH ()-[old:CHILD {id: $id}]->()
		MATCH (a:DialogNode {id: $from}), (b:DialogNode {id: $to})
		WHERE a.graph_id = old.graph_id AND b.graph_id = old.graph_id
		CREATE (a)-[r:CHILD {id: old.id, graph_id: old.graph_id, seq: old.seq, order: $order}]->(b)
		DELETE old
		RETURN r.id AS id
	`

	deleteEdgeQuery = `MATCH ()-[r:CHILD {id: $id}]->() DELETE r`
)
