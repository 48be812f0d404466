package sqlinline

const QInsertProposal = `--sql 284b1c4a-a2ab-4454-9b26-757471edc139
insert into proposals(id, project_id, milestone_id, amount, evidence_ref, transfer_type, destination_ref, status, created_at, updated_at)
values (gen_random_uuid(), $1::uuid, $2::uuid, $3::bigint, $4::text, $5::text, $6::text, 'pending', now(), now())
returning id, created_at;
`

const QGetProposalForUpdate = `--sql 1592b09e-e56a-4ac0-a257-8f2035995e5a
select id, project_id, milestone_id, amount, evidence_ref, transfer_type, destination_ref, status,
       ai_score, ai_notes, ai_started_at, approvals, rejections, required_approvals,
       decided_by, decision_note, failure_reason, tx_ref, created_at, updated_at, executed_at
from proposals
where id = $1::uuid
for update;
`

const QOpenProposalExists = `--sql 0f983835-0eaa-4a41-910e-3eec72f04ba3
select exists(
    select 1 from proposals
    where milestone_id = $1::uuid
      and status not in ('rejected', 'executed', 'failed')
);
`

const QScoreProposal = `--sql bde19c68-4b77-4ab4-b33b-e1781bc38696
update proposals
set status = 'scored', ai_score = $2::int, ai_notes = $3::text, updated_at = now()
where id = $1::uuid and status = 'pending';
`

const QDecideProposal = `--sql 4ef9d5e5-2406-467a-bd2e-f8039d93805a
update proposals
set status = $2::text, decided_by = $3::uuid, decision_note = nullif($4::text, ''), updated_at = now()
where id = $1::uuid and status in ('pending', 'scored')
returning status;
`

const QMarkProposalExecuting = `--sql 5a47b7b2-9929-4220-bb77-2baeb51e9e96
update proposals
set status = 'executing', updated_at = now()
where id = $1::uuid and status = 'approved';
`

const QMarkProposalExecuted = `--sql 0dfa82ff-258f-44aa-9b08-e075e869bdb9
update proposals
set status = 'executed', tx_ref = $2::text, executed_at = now(), updated_at = now()
where id = $1::uuid and status in ('approved', 'executing');
`

const QMarkProposalFailed = `--sql e203fbe4-fbd4-45a6-a341-5ac401757b15
update proposals
set status = 'failed', failure_reason = $2::text, updated_at = now()
where id = $1::uuid and status = 'executing';
`

const QGetProposalDetail = `--sql 51c8df34-8939-4064-bb36-80d40b3ac32d
select p.id, p.project_id, p.milestone_id, p.amount, p.evidence_ref, p.transfer_type, p.destination_ref, p.status,
       p.ai_score, p.ai_notes, p.ai_started_at, p.approvals, p.rejections, p.required_approvals,
       p.decided_by, p.decision_note, p.failure_reason, p.tx_ref, p.created_at, p.updated_at, p.executed_at,
       t.status, t.provider_ref
from proposals p
left join lateral (
    select status, provider_ref
    from transfers
    where proposal_id = p.id
    order by created_at desc
    limit 1
) t on true
where p.id = $1::uuid;
`

const QListProposalsByProject = `--sql 4518da51-ed4a-4eec-b4bc-896dd031db2f
select p.id, p.project_id, p.milestone_id, p.amount, p.evidence_ref, p.transfer_type, p.destination_ref, p.status,
       p.ai_score, p.ai_notes, p.ai_started_at, p.approvals, p.rejections, p.required_approvals,
       p.decided_by, p.decision_note, p.failure_reason, p.tx_ref, p.created_at, p.updated_at, p.executed_at,
       t.status, t.provider_ref
from proposals p
left join lateral (
    select status, provider_ref
    from transfers
    where proposal_id = p.id
    order by created_at desc
    limit 1
) t on true
where p.project_id = $1::uuid
  and ($2::text = '' or p.status = $2::text)
order by p.created_at desc
limit $3::int;
`
