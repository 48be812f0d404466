package sqlinline

const QUpsertVote = `--sql 2d4bf6ca-2669-4a72-850c-b92d76259dc6
insert into proposal_votes(proposal_id, voter_id, approve, comment, created_at)
values ($1::uuid, $2::uuid, $3::boolean, $4::text, now())
on conflict (proposal_id, voter_id) do update set
    approve = excluded.approve,
    comment = excluded.comment;
`

// QRecountProposalVotes refreshes the advisory tallies from the vote rows.
// Runs in the same transaction as the vote upsert.
const QRecountProposalVotes = `--sql 682add3c-04a8-4794-aecb-d6be940b5fc1
update proposals
set approvals = (select count(*) from proposal_votes v where v.proposal_id = proposals.id and v.approve),
    rejections = (select count(*) from proposal_votes v where v.proposal_id = proposals.id and not v.approve),
    updated_at = now()
where id = $1::uuid
returning approvals, rejections;
`

const QListVotes = `--sql 073af3d2-1ecf-4656-a1c1-959b50cdf5de
select proposal_id, voter_id, approve, comment, created_at
from proposal_votes
where proposal_id = $1::uuid
order by created_at asc;
`
