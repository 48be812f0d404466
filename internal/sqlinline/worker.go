package sqlinline

// QWorkerClaimScoring picks the oldest unscored pending proposal and stamps
// the claim. Stale claims (worker died mid-call) become reclaimable after
// five minutes.
const QWorkerClaimScoring = `--sql 4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db
with next_proposal as (
    select id
    from proposals
    where status = 'pending'
      and ai_score is null
      and (ai_started_at is null or ai_started_at < now() - interval '5 minutes')
    order by created_at asc
    for update skip locked
    limit 1
),
claimed as (
    update proposals
    set ai_started_at = now(), updated_at = now()
    where id in (select id from next_proposal)
    returning id, project_id, milestone_id, amount, evidence_ref
)
select * from claimed;
`

const QWorkerReleaseScoring = `--sql caf39593-a0e0-4e4c-a7ee-82b3b1242807
update proposals
set ai_started_at = null, updated_at = now()
where id = $1::uuid and status = 'pending';
`
